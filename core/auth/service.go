package auth

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/syncqueue"
)

const syncTable = "profiles"

var (
	// errors
	ErrNotFound            = errors.New("profile not found")
	ErrEmailExists         = errors.New("a profile with this email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrExternalAccount     = errors.New("this account signs in with Google")
	ErrInvalidRole         = errors.New("invalid role")
	ErrNoSession           = errors.New("no active session")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrIdentityUnavailable = errors.New("external sign-in is not configured")
	ErrUnverifiedEmail     = errors.New("the provider has not verified this email")
)

type (
	Repository interface {
		// CreateProfile inserts prof; a taken email yields ErrEmailExists.
		CreateProfile(ctx context.Context, prof Profile, exec ...core.DBExecutor) (Profile, error)
		GetProfileByID(ctx context.Context, id string, exec ...core.DBExecutor) (Profile, error)
		GetProfileByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (Profile, error)
		// QueryProfiles returns the profiles holding role, or all of them when role is empty.
		QueryProfiles(ctx context.Context, role string, exec ...core.DBExecutor) ([]Profile, error)
		// UpdateProfile saves the full name, metadata and password hash of prof.
		UpdateProfile(ctx context.Context, prof Profile, exec ...core.DBExecutor) (Profile, error)
		SetLastLogin(ctx context.Context, prof Profile, exec ...core.DBExecutor) error
	}

	// SessionStore keeps the signed in session outside the database.
	SessionStore interface {
		SaveSession(sess Session) error
		// LoadSession returns ErrNoSession when nobody is signed in.
		LoadSession() (Session, error)
		ClearSession() error
	}

	// IdentityVerifier checks tokens issued by an external identity provider.
	IdentityVerifier interface {
		Verify(ctx context.Context, idToken string) (Identity, error)
	}

	Service struct {
		db       core.DB
		repo     Repository
		sessions SessionStore
		identity IdentityVerifier // nil when external sign-in is off
		queue    *syncqueue.Queue
		validate *validator.Validate
		log      core.Logger
		conf     *core.Config
	}
)

func NewService(
	db core.DB,
	repo Repository,
	sessions SessionStore,
	identity IdentityVerifier,
	queue *syncqueue.Queue,
	validate *validator.Validate,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		sessions: sessions,
		identity: identity,
		queue:    queue,
		validate: validate,
		log:      logger,
		conf:     conf,
	}
}

func emailTakenError() error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

func (svc *Service) checkEmailUniqueness(ctx context.Context, email string) error {
	_, err := svc.repo.GetProfileByEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
		return emailTakenError()
	case ErrNotFound:
		return nil
	default:
		return err
	}
}

// insert writes prof and its sync entry as one unit.
func (svc *Service) insert(ctx context.Context, prof Profile) (Profile, error) {
	err := svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		var err error
		if prof, err = svc.repo.CreateProfile(ctx, prof, tx); err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     syncTable,
			RecordID:  prof.ID,
			Operation: syncqueue.OpInsert,
			Payload:   prof,
		})
	})
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return Profile{}, emailTakenError()
		}
		return Profile{}, err
	}
	return prof, nil
}

// Create adds a profile with the given role without signing it in.
func (svc *Service) Create(ctx context.Context, reg Registration, role string) (Profile, error) {
	if role != RoleAdmin && role != RoleTeacher {
		return Profile{}, ErrInvalidRole
	}
	if err := reg.Validate(svc.validate); err != nil {
		return Profile{}, err
	}
	if err := svc.checkEmailUniqueness(ctx, reg.Email); err != nil {
		return Profile{}, err
	}

	now := core.NowFunc()
	id := uuid.New().String()
	md := reg.Metadata
	md.Version = MetadataVersion
	md.TeacherCode = teacherCode(id)
	md.Provider = ProviderLocal

	prof := Profile{
		ID:        id,
		Email:     reg.Email,
		FullName:  reg.FullName,
		Role:      role,
		Metadata:  md,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := prof.SetPassword(reg.Password); err != nil {
		return Profile{}, err
	}
	return svc.insert(ctx, prof)
}

// Register creates a teacher profile and signs it in.
func (svc *Service) Register(ctx context.Context, reg Registration) (Session, error) {
	prof, err := svc.Create(ctx, reg, RoleTeacher)
	if err != nil {
		return Session{}, err
	}
	svc.log.Info("profile registered", prof)
	return svc.openSession(prof)
}

func (svc *Service) Login(ctx context.Context, email, pwd string) (Session, error) {
	prof, err := svc.repo.GetProfileByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, errors.Wrap(err, "finding profile by email")
	}
	if err = prof.CheckPassword(pwd); err != nil {
		return Session{}, err
	}
	if prof, err = svc.touchLastLogin(ctx, prof); err != nil {
		return Session{}, err
	}
	return svc.openSession(prof)
}

// ExternalLogin signs in with a provider issued ID token, creating the profile on first use.
func (svc *Service) ExternalLogin(ctx context.Context, idToken string) (Session, error) {
	if svc.identity == nil {
		return Session{}, ErrIdentityUnavailable
	}
	ident, err := svc.identity.Verify(ctx, idToken)
	if err != nil {
		return Session{}, err
	}
	// profiles are matched by email
	if !ident.EmailVerified {
		return Session{}, ErrUnverifiedEmail
	}
	email := core.CleanString(ident.Email, true /* lower */)

	prof, err := svc.repo.GetProfileByEmail(ctx, email)
	switch errors.Cause(err) {
	case nil:
	case ErrNotFound:
		now := core.NowFunc()
		id := uuid.New().String()
		name := core.CleanString(ident.Name)
		if name == "" {
			name = email
		}
		prof, err = svc.insert(ctx, Profile{
			ID:           id,
			Email:        email,
			PasswordHash: ExternalPasswordHash,
			FullName:     name,
			Role:         RoleTeacher,
			Metadata: Metadata{
				Version:     MetadataVersion,
				TeacherCode: teacherCode(id),
				Provider:    ProviderGoogle,
			},
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return Session{}, err
		}
		svc.log.Info("external profile created", prof)
	default:
		return Session{}, errors.Wrap(err, "finding profile by email")
	}

	if prof, err = svc.touchLastLogin(ctx, prof); err != nil {
		return Session{}, err
	}
	return svc.openSession(prof)
}

func (svc *Service) touchLastLogin(ctx context.Context, prof Profile) (Profile, error) {
	prof.LastLogin = null.TimeFrom(core.NowFunc())
	if err := svc.repo.SetLastLogin(ctx, prof); err != nil {
		return Profile{}, errors.Wrap(err, "setting lastLogin")
	}
	return prof, nil
}

func (svc *Service) openSession(prof Profile) (Session, error) {
	now := core.NowFunc()
	token, claims, err := NewToken(prof, svc.conf.SecretKey, svc.conf.AppName, now, svc.conf.Session.TTL)
	if err != nil {
		return Session{}, err
	}
	sess := Session{
		UserID:      prof.ID,
		Email:       prof.Email,
		FullName:    prof.FullName,
		Role:        prof.Role,
		TeacherCode: prof.Metadata.TeacherCode,
		Token:       token,
		IssuedAt:    claims.IssuedAt.Time,
		ExpiresAt:   claims.ExpiresAt.Time,
	}
	if err = svc.sessions.SaveSession(sess); err != nil {
		return Session{}, errors.Wrap(err, "saving session")
	}
	return sess, nil
}

func (svc *Service) Logout(_ context.Context) error {
	return svc.sessions.ClearSession()
}

// CurrentSession returns the stored session; an expired one is cleared and reported as ErrNoSession.
func (svc *Service) CurrentSession(_ context.Context) (Session, error) {
	sess, err := svc.sessions.LoadSession()
	if err != nil {
		return Session{}, err
	}
	if sess.Expired(core.NowFunc()) {
		if err = svc.sessions.ClearSession(); err != nil {
			svc.log.Warn("clearing expired session", err)
		}
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Authenticate resolves a session token to its claims.
func (svc *Service) Authenticate(token string) (*Claims, error) {
	return ParseToken(token, svc.conf.SecretKey)
}

func (svc *Service) GetProfile(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfileByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return svc.repo.GetProfileByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) ListProfiles(ctx context.Context) ([]Profile, error) {
	return svc.repo.QueryProfiles(ctx, "")
}

func (svc *Service) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (Profile, error) {
	if err := upd.Validate(svc.validate); err != nil {
		return Profile{}, err
	}
	prof, err := svc.repo.GetProfileByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if upd.FullName != "" {
		prof.FullName = upd.FullName
	}
	prof.Metadata = prof.Metadata.merge(upd.Metadata)
	prof.UpdatedAt = core.NowFunc()

	err = svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		if prof, err = svc.repo.UpdateProfile(ctx, prof, tx); err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     syncTable,
			RecordID:  prof.ID,
			Operation: syncqueue.OpUpdate,
			Payload:   prof,
		})
	})
	if err != nil {
		return Profile{}, err
	}
	return prof, nil
}

func (svc *Service) ChangePassword(ctx context.Context, id string, pc PasswordChange) error {
	if err := svc.validate.Struct(pc); err != nil {
		return err
	}
	prof, err := svc.repo.GetProfileByID(ctx, id)
	if err != nil {
		return err
	}
	if err = prof.CheckPassword(pc.OldPassword); err != nil {
		if err == ErrInvalidCredentials {
			return core.NewValidationError(nil, core.FieldError{Field: "oldPassword", Error: "wrong password"})
		}
		return err
	}
	return svc.setPassword(ctx, prof, pc.NewPassword)
}

// ResetPassword replaces the password of the profile with email, without checking the old one.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	if err := svc.validate.Var(pwd, "required,min=6"); err != nil {
		return err
	}
	prof, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return svc.setPassword(ctx, prof, pwd)
}

func (svc *Service) setPassword(ctx context.Context, prof Profile, pwd string) error {
	if err := prof.SetPassword(pwd); err != nil {
		return err
	}
	prof.UpdatedAt = core.NowFunc()
	return svc.db.WithinTx(ctx, func(tx core.DBExecutor) error {
		var err error
		if prof, err = svc.repo.UpdateProfile(ctx, prof, tx); err != nil {
			return err
		}
		return svc.queue.Append(ctx, tx, syncqueue.Change{
			Table:     syncTable,
			RecordID:  prof.ID,
			Operation: syncqueue.OpUpdate,
			Payload:   prof,
		})
	})
}

// IsAdmin reports whether the profile id holds the admin role. Unknown ids are not admins.
func (svc *Service) IsAdmin(ctx context.Context, id string) (bool, error) {
	prof, err := svc.repo.GetProfileByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return prof.IsAdmin(), nil
}

// EnsureAdmin creates the admin profile unless one already exists.
// It returns the (first) admin and whether it was just created.
func (svc *Service) EnsureAdmin(ctx context.Context, email, pwd, fullName string) (Profile, bool, error) {
	admins, err := svc.repo.QueryProfiles(ctx, RoleAdmin)
	if err != nil {
		return Profile{}, false, err
	}
	if len(admins) > 0 {
		return admins[0], false, nil
	}

	prof, err := svc.Create(ctx, Registration{Email: email, Password: pwd, FullName: fullName}, RoleAdmin)
	if err != nil {
		return Profile{}, false, errors.Wrap(err, "creating admin")
	}
	svc.log.Info("admin profile seeded", prof)
	return prof, true, nil
}

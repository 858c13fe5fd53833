package auth

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/tamkeen/tamkeen/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

// Providers
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

const (
	// ExternalPasswordHash marks profiles that can only sign in through an identity provider.
	ExternalPasswordHash = "EXTERNAL_AUTH"

	MetadataVersion = 1

	teacherCodeLen = 8
)

// Metadata is the structured profile blob, stored as JSON in profiles.metadata.
type Metadata struct {
	Version     int      `json:"version"`
	Phone       string   `json:"phone,omitempty" validate:"omitempty,dzphone"`
	Wilaya      string   `json:"wilaya,omitempty"`
	School      string   `json:"school,omitempty"`
	Level       string   `json:"level,omitempty"`
	Subjects    []string `json:"subjects,omitempty" validate:"omitempty,dive,notblank"`
	TeacherCode string   `json:"teacherCode,omitempty"`
	Provider    string   `json:"provider,omitempty" validate:"omitempty,oneof=local google"`
}

func (m Metadata) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "encoding metadata")
	}
	return string(data), nil
}

func (m *Metadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{Version: MetadataVersion}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.Errorf("cannot scan %T into Metadata", src)
	}

	var md Metadata
	if len(data) > 0 {
		if err := json.Unmarshal(data, &md); err != nil {
			return errors.Wrap(err, "decoding metadata")
		}
	}
	// blobs written before versioning carry the same fields
	if md.Version == 0 {
		md.Version = MetadataVersion
	}
	*m = md
	return nil
}

// merge overlays the non-empty fields of upd. Server assigned fields are left untouched.
func (m Metadata) merge(upd Metadata) Metadata {
	if upd.Phone != "" {
		m.Phone = upd.Phone
	}
	if upd.Wilaya != "" {
		m.Wilaya = upd.Wilaya
	}
	if upd.School != "" {
		m.School = upd.School
	}
	if upd.Level != "" {
		m.Level = upd.Level
	}
	if upd.Subjects != nil {
		m.Subjects = upd.Subjects
	}
	return m
}

func (m *Metadata) clean() {
	m.Phone = strings.NewReplacer(" ", "", "-", "", ".", "").Replace(core.CleanString(m.Phone))
	m.Wilaya = core.CleanString(m.Wilaya)
	m.School = core.CleanString(m.School)
	m.Level = core.CleanString(m.Level)
	for i, s := range m.Subjects {
		m.Subjects[i] = core.CleanString(s)
	}
}

type Profile struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"fullName"`
	Role         string    `db:"role" json:"role"`
	Metadata     Metadata  `db:"metadata" json:"metadata"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"` // UTC
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"` // UTC
	LastLogin    null.Time `db:"last_login" json:"lastLogin"` // UTC
}

func (p *Profile) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	p.PasswordHash = string(hash)
	return nil
}

func (p *Profile) CheckPassword(pwd string) error {
	if p.IsExternal() {
		return ErrExternalAccount
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(pwd)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (p *Profile) IsExternal() bool {
	return p.PasswordHash == ExternalPasswordHash
}

func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// teacherCode derives the short public identifier of a profile from its id.
func teacherCode(id string) string {
	code := strings.ReplaceAll(id, "-", "")
	if len(code) > teacherCodeLen {
		code = code[:teacherCodeLen]
	}
	return strings.ToUpper(code)
}

// Registration contains information needed to create a new Profile.
type Registration struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=6"`
	FullName string   `json:"fullName" validate:"notblank"`
	Metadata Metadata `json:"metadata"`
}

func (r *Registration) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.FullName = core.CleanString(r.FullName)
	r.Metadata.clean()
	return validate.Struct(r)
}

// ProfileUpdate defines what information may be provided to modify an existing Profile.
type ProfileUpdate struct {
	FullName string   `json:"fullName"`
	Metadata Metadata `json:"metadata"`
}

func (pu *ProfileUpdate) Validate(validate *validator.Validate) error {
	pu.FullName = core.CleanString(pu.FullName)
	pu.Metadata.clean()
	return validate.Struct(pu)
}

type PasswordChange struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// Session is the identity of the signed in user, kept in the session store between runs.
type Session struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	Role        string    `json:"role"`
	TeacherCode string    `json:"teacherCode"`
	Token       string    `json:"token"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Identity is a user vouched for by an external identity provider.
type Identity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/tamkeen/tamkeen/apps/api/echo"
	"github.com/tamkeen/tamkeen/core"
	"github.com/tamkeen/tamkeen/core/auth"
	"github.com/tamkeen/tamkeen/core/grading"
	"github.com/tamkeen/tamkeen/core/journal"
	"github.com/tamkeen/tamkeen/core/reference"
	"github.com/tamkeen/tamkeen/core/student"
	"github.com/tamkeen/tamkeen/storage/database"
	sqlxrepos "github.com/tamkeen/tamkeen/storage/database/sqlx"
	testutil "github.com/tamkeen/tamkeen/tests"
)

type httpErr struct {
	Error string `json:"error"`
}

type invokeResult struct {
	Success bool                    `json:"success"`
	Error   string                  `json:"error"`
	UserID  string                  `json:"userId"`
	ID      string                  `json:"id"`
	Session *auth.Session           `json:"session"`
	Report  *reference.ImportReport `json:"report"`
}

type testApp struct {
	server *Server
	deps   *Deps
	db     *database.Store
	conf   *core.Config
}

func setup(t *testing.T, mutate ...func(conf *core.Config)) testApp {
	db := testutil.PrepareDB(t)
	conf := testutil.NewConfig()
	for _, fn := range mutate {
		fn(conf)
	}
	validate, translator := testutil.NewValidator()
	logger := testutil.NewLogger()
	queue := testutil.NewQueue(db)

	deps := &Deps{
		AuthSvc:      testutil.NewAuthService(db, nil, nil),
		JournalSvc:   journal.NewService(db, sqlxrepos.NewJournalRepository(db), queue, validate, logger),
		StudentSvc:   student.NewService(db, sqlxrepos.NewStudentRepository(db), queue, validate, logger),
		GradingSvc:   grading.NewService(db, sqlxrepos.NewGradeRepository(db), queue, validate, logger),
		ReferenceSvc: reference.NewService(db, sqlxrepos.NewReferenceRepository(db), validate, logger),
		Queue:        queue,
	}
	return testApp{
		server: NewServer(conf, logger, translator, deps),
		deps:   deps,
		db:     db,
		conf:   conf,
	}
}

func getToken(t *testing.T, prof auth.Profile) string {
	token, _, err := auth.NewToken(prof, testutil.SecretKey, "Tamkeen", time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (app testApp) invoke(t *testing.T, op, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body == nil {
		body = map[string]interface{}{}
	}
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, "/v1/invoke/"+op, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func TestServer_home(t *testing.T) {
	app := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Tamkeen is running", rec.Body.String())
}

func TestServer_authentication(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateProfile(t, app.db, "Teacher", "teacher@test.dz", "secret1", auth.RoleTeacher)
	other := testutil.CreateProfile(t, app.db, "Other", "other@test.dz", "secret1", auth.RoleTeacher)
	admin := testutil.CreateProfile(t, app.db, "Admin", "admin@test.dz", "secret1", auth.RoleAdmin)

	expired, _, err := auth.NewToken(teacher, testutil.SecretKey, "Tamkeen", time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	forged, _, err := auth.NewToken(admin, "not-the-secret", "Tamkeen", time.Now(), time.Hour)
	require.NoError(t, err)

	day := map[string]interface{}{"teacherId": teacher.ID, "date": "2024-09-15"}

	tests := []struct {
		name     string
		op       string
		token    string
		body     interface{}
		wantCode int
		wantErr  string
	}{
		{name: "unknown op", op: "lol.nope", token: getToken(t, teacher), wantCode: http.StatusNotFound, wantErr: "unknown operation"},
		{name: "public op without token", op: "auth.current", wantCode: http.StatusOK},
		{name: "protected op without token", op: "journal.getDaily", body: day, wantCode: http.StatusUnauthorized, wantErr: "missing or malformed jwt"},
		{name: "expired token", op: "journal.getDaily", token: expired, body: day, wantCode: http.StatusUnauthorized, wantErr: "invalid or expired jwt"},
		{name: "forged token", op: "journal.getDaily", token: forged, body: day, wantCode: http.StatusUnauthorized, wantErr: "invalid or expired jwt"},
		{name: "owner", op: "journal.getDaily", token: getToken(t, teacher), body: day, wantCode: http.StatusOK},
		{name: "someone else's journal", op: "journal.getDaily", token: getToken(t, other), body: day, wantCode: http.StatusForbidden, wantErr: "permission denied"},
		{name: "admin reads any journal", op: "journal.getDaily", token: getToken(t, admin), body: day, wantCode: http.StatusOK},
		{name: "teacher lists profiles", op: "auth.listProfiles", token: getToken(t, teacher), wantCode: http.StatusForbidden, wantErr: "permission denied"},
		{name: "admin lists profiles", op: "auth.listProfiles", token: getToken(t, admin), wantCode: http.StatusOK},
		{name: "teacher imports", op: "admin.import", token: getToken(t, teacher), wantCode: http.StatusForbidden, wantErr: "permission denied"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.invoke(t, tt.op, tt.token, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantErr != "" {
				var herr httpErr
				decode(t, rec, &herr)
				assert.Equal(t, tt.wantErr, herr.Error)
			}
		})
	}
}

func TestServer_recordOwnership(t *testing.T) {
	app := setup(t)
	ctx := context.Background()
	teacher := testutil.CreateProfile(t, app.db, "Teacher", "teacher@test.dz", "secret1", auth.RoleTeacher)
	other := testutil.CreateProfile(t, app.db, "Other", "other@test.dz", "secret1", auth.RoleTeacher)
	admin := testutil.CreateProfile(t, app.db, "Admin", "admin@test.dz", "secret1", auth.RoleAdmin)

	sess, err := app.deps.JournalSvc.AddSession(ctx, journal.NewSession{
		TeacherID: teacher.ID, Date: "2024-09-15", SessionFields: journal.SessionFields{Subject: "Math"},
	})
	require.NoError(t, err)
	std, err := app.deps.StudentSvc.Add(ctx, student.NewStudent{
		TeacherID: teacher.ID, Fields: student.Fields{FirstName: "Rania", LastName: "Bouzid"},
	})
	require.NoError(t, err)
	grd, err := app.deps.GradingSvc.Save(ctx, grading.GradeInput{StudentID: std.ID, TeacherID: teacher.ID, Subject: "Math", Term: 1})
	require.NoError(t, err)

	otherToken := getToken(t, other)
	tests := []struct {
		name string
		op   string
		body map[string]interface{}
	}{
		{name: "update session", op: "journal.updateSession", body: map[string]interface{}{"id": sess.ID, "subject": "Physique"}},
		{name: "delete session", op: "journal.deleteSession", body: map[string]interface{}{"id": sess.ID}},
		{name: "update student", op: "student.update", body: map[string]interface{}{"id": std.ID, "firstName": "X", "lastName": "Y"}},
		{name: "delete student", op: "student.delete", body: map[string]interface{}{"id": std.ID}},
		{name: "grade another roster", op: "grading.save", body: map[string]interface{}{
			"studentId": std.ID, "teacherId": other.ID, "subject": "Math", "term": 1, "exam": 20,
		}},
		{name: "delete grade", op: "grading.delete", body: map[string]interface{}{"id": grd.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.invoke(t, tt.op, otherToken, tt.body)
			assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
		})
	}

	// nothing changed hands
	dj, err := app.deps.JournalSvc.GetDaily(ctx, teacher.ID, "2024-09-15")
	require.NoError(t, err)
	require.Len(t, dj.Sessions, 1)
	assert.Equal(t, "Math", dj.Sessions[0].Subject.String)
	gotStd, err := app.deps.StudentSvc.GetByID(ctx, std.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rania", gotStd.FirstName)
	gotGrd, err := app.deps.GradingSvc.GetByID(ctx, grd.ID)
	require.NoError(t, err)
	assert.Equal(t, teacher.ID, gotGrd.TeacherID)
	assert.False(t, gotGrd.Exam.Valid)

	// a missing record is still reported by the operation itself
	rec := app.invoke(t, "student.delete", otherToken, map[string]interface{}{"id": "ghost"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `false`, rec.Body.String())

	// the owner and an admin pass
	rec = app.invoke(t, "journal.updateSession", getToken(t, teacher), map[string]interface{}{"id": sess.ID, "subject": "Physique"})
	assert.JSONEq(t, `true`, rec.Body.String())
	rec = app.invoke(t, "grading.delete", getToken(t, admin), map[string]interface{}{"id": grd.ID})
	assert.JSONEq(t, `true`, rec.Body.String())
}

func TestServer_desktopMode(t *testing.T) {
	app := setup(t, func(conf *core.Config) { conf.Server.RequireAuth = false })
	teacher := testutil.CreateProfile(t, app.db, "Teacher", "teacher@test.dz", "secret1", auth.RoleTeacher)

	rec := app.invoke(t, "journal.getRange", "", map[string]string{
		"teacherId": teacher.ID, "from": "2024-09-01", "to": "2024-09-30",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `[]`, rec.Body.String())

	// admin operations still need a signed in admin
	rec = app.invoke(t, "auth.listProfiles", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.invoke(t, "auth.login", "", map[string]string{"email": "teacher@test.dz", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.invoke(t, "auth.listProfiles", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	testutil.CreateProfile(t, app.db, "Admin", "admin@test.dz", "secret1", auth.RoleAdmin)
	rec = app.invoke(t, "auth.login", "", map[string]string{"email": "admin@test.dz", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = app.invoke(t, "auth.listProfiles", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_authFlow(t *testing.T) {
	app := setup(t)

	reg := map[string]interface{}{
		"email":    "Amina@Test.dz",
		"password": "secret1",
		"fullName": "Amina B.",
		"metadata": map[string]interface{}{"phone": "0551 23 45 67", "wilaya": "16"},
	}
	rec := app.invoke(t, "auth.register", "", reg)
	require.Equal(t, http.StatusOK, rec.Code)
	var res invokeResult
	decode(t, rec, &res)
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Session)
	assert.Equal(t, res.UserID, res.Session.UserID)
	assert.Equal(t, "amina@test.dz", res.Session.Email)
	assert.Equal(t, auth.RoleTeacher, res.Session.Role)
	assert.Len(t, res.Session.TeacherCode, 8)

	// the registered session is the current one
	rec = app.invoke(t, "auth.current", "", nil)
	var current auth.Session
	decode(t, rec, &current)
	assert.Equal(t, res.UserID, current.UserID)

	// duplicate email
	rec = app.invoke(t, "auth.register", "", reg)
	res = invokeResult{}
	decode(t, rec, &res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "email")

	tests := []struct {
		name        string
		email       string
		password    string
		wantSuccess bool
		wantErr     string
	}{
		{name: "unknown email", email: "nobody@test.dz", password: "secret1", wantErr: auth.ErrInvalidCredentials.Error()},
		{name: "wrong password", email: "amina@test.dz", password: "secret2", wantErr: auth.ErrInvalidCredentials.Error()},
		{name: "valid", email: " AMINA@test.dz ", password: "secret1", wantSuccess: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.invoke(t, "auth.login", "", map[string]string{"email": tt.email, "password": tt.password})
			require.Equal(t, http.StatusOK, rec.Code)
			var res invokeResult
			decode(t, rec, &res)
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.Equal(t, tt.wantErr, res.Error)
			if tt.wantSuccess {
				require.NotNil(t, res.Session)
				claims, err := auth.ParseToken(res.Session.Token, testutil.SecretKey)
				require.NoError(t, err)
				assert.Equal(t, res.Session.UserID, claims.Subject)
			}
		})
	}

	// external login is off without a Google client id
	rec = app.invoke(t, "auth.externalLogin", "", map[string]string{"idToken": "x.y.z"})
	res = invokeResult{}
	decode(t, rec, &res)
	assert.False(t, res.Success)
	assert.Equal(t, auth.ErrIdentityUnavailable.Error(), res.Error)

	rec = app.invoke(t, "auth.logout", "", nil)
	assert.JSONEq(t, `true`, rec.Body.String())
	rec = app.invoke(t, "auth.current", "", nil)
	assert.JSONEq(t, `null`, rec.Body.String())
}

func TestServer_profile(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateProfile(t, app.db, "Teacher", "teacher@test.dz", "secret1", auth.RoleTeacher)
	token := getToken(t, teacher)

	rec := app.invoke(t, "auth.updateProfile", token, map[string]interface{}{
		"id": teacher.ID, "fullName": "Teacher Two", "metadata": map[string]interface{}{"phone": "123"},
	})
	var res invokeResult
	decode(t, rec, &res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "phone")

	rec = app.invoke(t, "auth.updateProfile", token, map[string]interface{}{
		"id": teacher.ID, "fullName": "Teacher Two", "metadata": map[string]interface{}{"school": "CEM Ibn Khaldoun"},
	})
	res = invokeResult{}
	decode(t, rec, &res)
	assert.True(t, res.Success, res.Error)

	rec = app.invoke(t, "auth.getProfile", token, map[string]string{"id": teacher.ID})
	var prof auth.Profile
	decode(t, rec, &prof)
	assert.Equal(t, "Teacher Two", prof.FullName)
	assert.Equal(t, "CEM Ibn Khaldoun", prof.Metadata.School)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = app.invoke(t, "auth.changePassword", token, map[string]string{
		"id": teacher.ID, "oldPassword": "wrong1", "newPassword": "secret2",
	})
	res = invokeResult{}
	decode(t, rec, &res)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "oldPassword")

	rec = app.invoke(t, "auth.changePassword", token, map[string]string{
		"id": teacher.ID, "oldPassword": "secret1", "newPassword": "secret2",
	})
	res = invokeResult{}
	decode(t, rec, &res)
	assert.True(t, res.Success, res.Error)

	rec = app.invoke(t, "auth.isAdmin", token, map[string]string{"id": teacher.ID})
	assert.JSONEq(t, `false`, rec.Body.String())
	rec = app.invoke(t, "auth.isAdmin", token, map[string]string{"id": "unknown"})
	assert.JSONEq(t, `false`, rec.Body.String())
}

func TestServer_journal(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateProfile(t, app.db, "Teacher", "teacher@test.dz", "secret1", auth.RoleTeacher)
	token := getToken(t, teacher)

	for _, sess := range []map[string]interface{}{
		{"teacherId": teacher.ID, "date": "2024-09-15", "subject": "Math", "startTime": "10:00", "endTime": "11:00"},
		{"teacherId": teacher.ID, "date": "2024-09-15", "subject": "Math", "startTime": "08:00", "endTime": "09:00"},
	} {
		rec := app.invoke(t, "journal.addSession", token, sess)
		require.JSONEq(t, `true`, rec.Body.String())
	}
	// end before start
	rec := app.invoke(t, "journal.addSession", token, map[string]interface{}{
		"teacherId": teacher.ID, "date": "2024-09-15", "startTime": "10:00", "endTime": "09:00",
	})
	assert.JSONEq(t, `false`, rec.Body.String())

	rec = app.invoke(t, "journal.getDaily", token, map[string]string{"teacherId": teacher.ID, "date": "2024-09-15"})
	var dj journal.DailyJournal
	decode(t, rec, &dj)
	require.Len(t, dj.Sessions, 2)
	assert.Equal(t, "08:00", dj.Sessions[0].StartTime.String)
	assert.Equal(t, journal.CategoryLesson, dj.Sessions[0].Category)

	rec = app.invoke(t, "journal.updateSession", token, map[string]interface{}{
		"id": dj.Sessions[0].ID, "subject": "Physique", "startTime": "08:00", "endTime": "09:30",
	})
	assert.JSONEq(t, `true`, rec.Body.String())
	rec = app.invoke(t, "journal.updateNotes", token, map[string]string{
		"teacherId": teacher.ID, "date": "2024-09-15", "notes": "sortie pédagogique",
	})
	assert.JSONEq(t, `true`, rec.Body.String())
	rec = app.invoke(t, "journal.deleteSession", token, map[string]string{"id": dj.Sessions[1].ID})
	assert.JSONEq(t, `true`, rec.Body.String())
	rec = app.invoke(t, "journal.deleteSession", token, map[string]string{"id": "unknown"})
	assert.JSONEq(t, `false`, rec.Body.String())

	rec = app.invoke(t, "journal.getRange", token, map[string]string{
		"teacherId": teacher.ID, "from": "2024-09-01", "to": "2024-09-30",
	})
	var journals []journal.DailyJournal
	decode(t, rec, &journals)
	require.Len(t, journals, 1)
	assert.Equal(t, "sortie pédagogique", journals[0].Notes.String)
	require.Len(t, journals[0].Sessions, 1)
	assert.Equal(t, "Physique", journals[0].Sessions[0].Subject.String)

	rec = app.invoke(t, "journal.getDaily", token, map[string]string{"teacherId": teacher.ID, "date": "2024-09-16"})
	assert.JSONEq(t, `null`, rec.Body.String())

	rec = app.invoke(t, "journal.getRange", token, map[string]string{
		"teacherId": teacher.ID, "from": "2024-09-30", "to": "2024-09-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_studentsAndGrades(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateProfile(t, app.db, "Teacher", "teacher@test.dz", "secret1", auth.RoleTeacher)
	token := getToken(t, teacher)

	rec := app.invoke(t, "student.addMany", token, map[string]interface{}{
		"students": []map[string]interface{}{
			{"teacherId": teacher.ID, "firstName": "Yacine", "lastName": "Brahimi", "grade": "1AM", "groupName": "A"},
			{"teacherId": teacher.ID, "firstName": "Lina", "lastName": "Amrani", "grade": "1AM", "groupName": "B"},
		},
	})
	require.JSONEq(t, `true`, rec.Body.String())
	rec = app.invoke(t, "student.add", token, map[string]interface{}{"teacherId": teacher.ID, "firstName": " "})
	assert.JSONEq(t, `false`, rec.Body.String())

	rec = app.invoke(t, "student.getAll", token, map[string]interface{}{"teacherId": teacher.ID, "group": "A"})
	var students []student.Student
	decode(t, rec, &students)
	require.Len(t, students, 1)
	assert.Equal(t, "Yacine", students[0].FirstName)

	rec = app.invoke(t, "grading.save", token, map[string]interface{}{
		"studentId": students[0].ID, "teacherId": teacher.ID, "subject": "Math", "term": 1,
		"eval1": 12, "eval2": 14, "exam": 16,
	})
	var res invokeResult
	decode(t, rec, &res)
	require.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.ID)

	rec = app.invoke(t, "grading.save", token, map[string]interface{}{
		"studentId": students[0].ID, "teacherId": teacher.ID, "subject": "Math", "term": 1, "exam": 21,
	})
	res = invokeResult{}
	decode(t, rec, &res)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	rec = app.invoke(t, "grading.get", token, map[string]interface{}{"teacherId": teacher.ID, "subject": "Math", "term": 1})
	var sheet []grading.StudentGrade
	decode(t, rec, &sheet)
	require.Len(t, sheet, 2)
	for _, row := range sheet {
		if row.StudentID == students[0].ID {
			assert.Equal(t, 15.0, row.Average.Float64)
		} else {
			assert.False(t, row.Average.Valid)
		}
	}

	rec = app.invoke(t, "student.get", token, map[string]string{"id": "unknown"})
	assert.JSONEq(t, `null`, rec.Body.String())
	rec = app.invoke(t, "student.delete", token, map[string]string{"id": students[0].ID})
	assert.JSONEq(t, `true`, rec.Body.String())
}

func TestServer_referenceAndSync(t *testing.T) {
	app := setup(t)
	teacher := testutil.CreateProfile(t, app.db, "Teacher", "teacher@test.dz", "secret1", auth.RoleTeacher)
	admin := testutil.CreateProfile(t, app.db, "Admin", "admin@test.dz", "secret1", auth.RoleAdmin)
	token := getToken(t, teacher)

	rec := app.invoke(t, "repository.getWilayas", token, nil)
	var wilayas []reference.Wilaya
	decode(t, rec, &wilayas)
	assert.Len(t, wilayas, 58)

	rec = app.invoke(t, "repository.getYears", token, map[string]int64{"levelId": 2})
	var years []reference.Year
	decode(t, rec, &years)
	assert.Len(t, years, 4)

	rec = app.invoke(t, "admin.import", getToken(t, admin), map[string]interface{}{
		"subjects": []map[string]interface{}{{"levelId": 2, "code": "INFO", "nameAr": "إعلام آلي"}},
	})
	var res invokeResult
	decode(t, rec, &res)
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Report)
	assert.Equal(t, 1, res.Report.Subjects)

	rec = app.invoke(t, "admin.import", getToken(t, admin), nil)
	res = invokeResult{}
	decode(t, rec, &res)
	assert.False(t, res.Success)
	assert.Equal(t, reference.ErrEmptyBundle.Error(), res.Error)

	// two profiles were created
	rec = app.invoke(t, "sync.getPending", token, nil)
	var items []struct {
		ID        int64  `json:"id"`
		TableName string `json:"tableName"`
	}
	decode(t, rec, &items)
	require.Len(t, items, 2)
	assert.Equal(t, "profiles", items[0].TableName)

	rec = app.invoke(t, "sync.clearPending", token, map[string][]int64{"ids": {items[0].ID, items[1].ID}})
	assert.JSONEq(t, `true`, rec.Body.String())
	rec = app.invoke(t, "sync.getPending", token, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

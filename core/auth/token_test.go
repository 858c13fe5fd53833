package auth

import (
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestNewParseToken(t *testing.T) {
	const secret = "secret"
	prof := Profile{ID: "3f2b6c1e-0000-4000-8000-000000000001", Email: "t@test.dz", Role: RoleAdmin}

	now := time.Now()
	validToken, _, err := NewToken(prof, secret, "Tamkeen", now, time.Hour)
	if err != nil {
		t.Fatalf("NewToken() failed: %v", err)
	}
	expiredToken, _, _ := NewToken(prof, secret, "Tamkeen", now.Add(-2*time.Hour), time.Hour)
	forgedToken, _, _ := NewToken(prof, "other secret", "Tamkeen", now, time.Hour)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "no token", wantErr: ErrInvalidToken},
		{name: "garbage", token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "expired token", token: expiredToken, wantErr: ErrInvalidToken},
		{name: "forged token", token: forgedToken, wantErr: ErrInvalidToken},
		{name: "valid token", token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ParseToken(tt.token, secret)
			if errors.Cause(err) != tt.wantErr {
				t.Fatalf("ParseToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if claims.Subject != prof.ID || claims.Email != prof.Email || !claims.IsAdmin() {
				t.Errorf("ParseToken() claims = %+v; want those of %+v", claims, prof)
			}
		})
	}
}

func TestTeacherCode(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{id: "3f2b6c1e-aaaa-4000-8000-000000000001", want: "3F2B6C1E"},
		{id: "ab-cd", want: "ABCD"},
		{id: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := teacherCode(tt.id); got != tt.want {
				t.Errorf("teacherCode(%q) = %s; want %s", tt.id, got, tt.want)
			}
		})
	}
}

func TestMetadata_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    Metadata
		wantErr bool
	}{
		{name: "null", src: nil, want: Metadata{Version: MetadataVersion}},
		{name: "legacy blob", src: `{"phone":"0555123456"}`, want: Metadata{Version: MetadataVersion, Phone: "0555123456"}},
		{name: "bytes", src: []byte(`{"version":1,"wilaya":"16"}`), want: Metadata{Version: 1, Wilaya: "16"}},
		{name: "broken json", src: `{"phone":`, wantErr: true},
		{name: "unsupported type", src: 42, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var md Metadata
			err := md.Scan(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Scan() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(md, tt.want) {
				t.Errorf("Scan() = %+v; want %+v", md, tt.want)
			}
		})
	}
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		sess Session
		want bool
	}{
		{name: "no expiry", sess: Session{}, want: false},
		{name: "future", sess: Session{ExpiresAt: now.Add(time.Minute)}, want: false},
		{name: "past", sess: Session{ExpiresAt: now.Add(-time.Minute)}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sess.Expired(now); got != tt.want {
				t.Errorf("Expired() = %v; want %v", got, tt.want)
			}
		})
	}
}

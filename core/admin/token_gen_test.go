package admin

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	timeout := 3 * 24 * time.Hour
	tg := newTokenGenerator([]byte("secret"), timeout)

	now := time.Now().UTC()
	adm := Admin{
		Username:  "admin",
		Email:     "admin@test.test",
		IsActive:  true,
		CreatedAt: now,
		LastLogin: now,
	}
	_ = adm.SetPassword("pwd")

	validToken := tg.makeToken(adm)

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	tg.nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := tg.makeToken(adm)
	tg.nowFunc = time.Now // reset

	loggedIn := adm
	loggedIn.LastLogin = now.Add(time.Hour)

	tests := []struct {
		name    string
		adm     Admin
		token   string
		wantErr error
	}{
		{name: "no token", adm: adm, wantErr: errInvalidToken},
		{name: "invalid parts len", adm: adm, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", adm: adm, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", adm: adm, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", adm: adm, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", adm: adm, token: expiredToken, wantErr: errTokenExpired},
		{name: "logged in since", adm: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", adm: adm, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tg.verifyToken(tt.adm, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	uid := EncodeUID(Admin{Username: "admin"})
	uname, err := decodeUID(uid)
	if err != nil {
		t.Fatalf("decodeUID() error = %v", err)
	}
	if uname != "admin" {
		t.Errorf("decodeUID() = %v, want admin", uname)
	}
	if _, err = decodeUID("***"); err == nil {
		t.Error("decodeUID() expected an error")
	}
}

package steam

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginServer(t *testing.T, key *rsa.PrivateKey, dologin string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "abc123"})
		case "/login/getrsakey":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "bot", r.PostForm.Get("username"))
			fmt.Fprintf(w, `{"success":true,"publickey_mod":"%x","publickey_exp":"%x","timestamp":"42"}`, key.N, key.E)
		case "/login/dologin":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "42", r.PostForm.Get("rsatimestamp"))
			assert.Len(t, r.PostForm.Get("twofactorcode"), 5)

			encrypted, err := base64.StdEncoding.DecodeString(r.PostForm.Get("password"))
			require.NoError(t, err)
			plain, err := rsa.DecryptPKCS1v15(rand.Reader, key, encrypted)
			require.NoError(t, err)
			assert.Equal(t, "hunter2", string(plain))

			fmt.Fprint(w, dologin)
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}
}

func TestLogin(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	c := newTestClient(t, loginServer(t, key,
		`{"success":true,"login_complete":true,"transfer_parameters":{"steamid":"76561198000000001","auth":"a"}}`))
	c.session = nil

	require.NoError(t, c.Login(context.Background()))
	assert.Equal(t, testSteamID, c.GetSteamId())
	assert.Equal(t, "abc123", c.session.ID)
	assert.True(t, strings.HasPrefix(c.session.DeviceID, "android:"))
}

func TestLoginRequiresTwoFactor(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	c := newTestClient(t, loginServer(t, key, `{"success":false,"requires_twofactor":true}`))
	c.session = nil

	assert.ErrorIs(t, c.Login(context.Background()), RequireTwoFactorError)
	assert.Equal(t, SteamID(0), c.GetSteamId())
}

func TestDeviceID(t *testing.T) {
	id := deviceID("bot", "hunter2")
	assert.Equal(t, id, deviceID("bot", "hunter2"))
	assert.NotEqual(t, id, deviceID("bot", "other"))
	assert.Regexp(t, `^android:[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}$`, id)
}

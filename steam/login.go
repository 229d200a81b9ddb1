package steam

import (
	"context"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

type LoginResponse struct {
	Success      bool   `json:"success"`
	PublicKeyMod string `json:"publickey_mod"`
	PublicKeyExp string `json:"publickey_exp"`
	Timestamp    string `json:"timestamp"`
	TokenGID     string `json:"token_gid"`
}

type LoginSession struct {
	Success           bool   `json:"success"`
	LoginComplete     bool   `json:"login_complete"`
	RequiresTwoFactor bool   `json:"requires_twofactor"`
	Message           string `json:"message"`
	RedirectURI       string `json:"redirect_uri"`
	OAuth             OAuth  `json:"transfer_parameters"`
}

type OAuth struct {
	ID          string  `json:"-"`
	DeviceID    string  `json:"-"`
	SteamID     SteamID `json:"steamid,string"`
	Auth        string  `json:"auth"`
	TokenSecure string  `json:"token_secure"`
	WebCookie   string  `json:"webcookie"`
}

func (c *Client) Login(ctx context.Context) error {
	if err := c.setupCookie(ctx); err != nil {
		return fmt.Errorf("setup cookies: %w", err)
	}

	response, err := c.makeLoginRequest(ctx, c.credentials.Username)
	if err != nil {
		return err
	}

	var twoFactorCode string
	if len(c.credentials.SharedSecret) != 0 {
		if twoFactorCode, err = GenerateTwoFactorCode(c.credentials.SharedSecret, c.getTimeDiff()); err != nil {
			return err
		}
	}

	if err := c.proceedDirectLogin(ctx, response, c.credentials.Username, c.credentials.Password, twoFactorCode); err != nil {
		return err
	}

	c.log.Info("logged in", zap.Uint64("steamid64", uint64(c.session.SteamID)))
	return nil
}

func (c *Client) setupCookie(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.communityURL+"/login", nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}

	steamUrl, err := url.Parse(c.communityURL)
	if err != nil {
		return err
	}

	_, offset := time.Now().Zone()
	cookies := []*http.Cookie{
		{Name: "timezoneOffset", Value: fmt.Sprintf("%d,0", offset)},
		{Name: "Steam_Language", Value: c.language},
	}
	for _, cookie := range resp.Cookies() {
		cookies = append(cookies, &http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	jar.SetCookies(steamUrl, cookies)
	c.client.Jar = jar

	return nil
}

func (c *Client) loginHeaders(req *http.Request, size int) {
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Add("Content-Length", strconv.Itoa(size))
	req.Header.Add("X-Requested-With", "XMLHttpRequest")
	req.Header.Add("Origin", c.communityURL)
	req.Header.Add("Referer", c.communityURL+"/login")
	req.Header.Add("User-Agent", c.useragent)
	req.Header.Add("Accept", "*/*")
}

func (c *Client) makeLoginRequest(ctx context.Context, accountName string) (*LoginResponse, error) {
	reqData := url.Values{
		"username":   {accountName},
		"donotcache": {strconv.FormatInt(time.Now().Unix()*1000, 10)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.communityURL+"/login/getrsakey", strings.NewReader(reqData))
	if err != nil {
		return nil, err
	}
	c.loginHeaders(req, len(reqData))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var response LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode rsa key: %w", err)
	}

	if !response.Success {
		return nil, InvalidCredentialsError
	}

	return &response, nil
}

func encryptPassword(response *LoginResponse, password string) (string, error) {
	var n big.Int
	if _, ok := n.SetString(response.PublicKeyMod, 16); !ok {
		return "", fmt.Errorf("bad rsa modulus %q", response.PublicKeyMod)
	}

	exp, err := strconv.ParseInt(response.PublicKeyExp, 16, 32)
	if err != nil {
		return "", err
	}

	pub := rsa.PublicKey{N: &n, E: int(exp)}
	rsaOut, err := rsa.EncryptPKCS1v15(rand.Reader, &pub, []byte(password))
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(rsaOut), nil
}

func (c *Client) proceedDirectLogin(ctx context.Context, response *LoginResponse, accountName, password, twoFactorCode string) error {
	encrypted, err := encryptPassword(response, password)
	if err != nil {
		return err
	}

	reqData := url.Values{
		"captcha_text":      {""},
		"captchagid":        {"-1"},
		"emailauth":         {""},
		"emailsteamid":      {""},
		"username":          {accountName},
		"password":          {encrypted},
		"remember_login":    {"true"},
		"rsatimestamp":      {response.Timestamp},
		"twofactorcode":     {twoFactorCode},
		"donotcache":        {strconv.FormatInt(time.Now().Unix()*1000, 10)},
		"loginfriendlyname": {""},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.communityURL+"/login/dologin", strings.NewReader(reqData))
	if err != nil {
		return err
	}
	c.loginHeaders(req, len(reqData))

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	loginSession := &LoginSession{}
	if err := json.NewDecoder(resp.Body).Decode(loginSession); err != nil {
		return fmt.Errorf("decode login session: %w", err)
	}

	if !loginSession.Success {
		if loginSession.RequiresTwoFactor {
			return RequireTwoFactorError
		}
		return errors.New(loginSession.Message)
	}

	steamUrl, _ := url.Parse(c.communityURL)
	for _, cookie := range c.client.Jar.Cookies(steamUrl) {
		if cookie.Name == "sessionid" {
			loginSession.OAuth.ID = cookie.Value
			break
		}
	}

	c.session = &loginSession.OAuth
	if c.session.ID == "" {
		return InvalidSessionError
	}

	c.session.DeviceID = deviceID(accountName, password)
	return nil
}

func deviceID(accountName, password string) string {
	sum := md5.Sum([]byte(accountName + password))
	return fmt.Sprintf(
		"android:%x-%x-%x-%x-%x",
		sum[:2], sum[2:4], sum[4:6], sum[6:8], sum[8:10],
	)
}

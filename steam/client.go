package steam

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	baseUrl          = "https://steamcommunity.com"
	apiUrl           = "https://api.steampowered.com"
	defaultUseragent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/51.0.2704.103 Safari/537.36"

	LanguageEng = "english"
	LanguageRus = "russian"
)

type Client struct {
	client      *http.Client
	session     *OAuth
	useragent   string
	credentials *Credentials
	apiKey      string
	timeTip     int64
	language    string
	log         *zap.Logger

	// overridden in tests
	communityURL string
	apiURL       string

	confMu    sync.Mutex
	confQueue chan *confirmationRequest
	confDone  chan struct{}
}

type Credentials struct {
	Username       string
	Password       string
	SharedSecret   string
	IdentitySecret string
}

func NewClient(client *http.Client, useragent string, language string, credentials *Credentials) (*Client, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if useragent == "" {
		useragent = defaultUseragent
	}
	if language == "" {
		language = LanguageEng
	}

	if err := validateCredentials(credentials); err != nil {
		return nil, err
	}

	return &Client{
		client:       client,
		useragent:    useragent,
		credentials:  credentials,
		language:     language,
		log:          zap.NewNop(),
		communityURL: baseUrl,
		apiURL:       apiUrl,
	}, nil
}

// SetLogger replaces the no-op logger the client starts with.
func (c *Client) SetLogger(log *zap.Logger) {
	if log != nil {
		c.log = log
	}
}

// SetAPIKey sets a known web api key instead of scraping it with GetWebAPIKey.
func (c *Client) SetAPIKey(key string) {
	c.apiKey = key
}

// SetTimeTip stores the Steam server time so generated codes line up with it.
func (c *Client) SetTimeTip(serverTime int64) {
	c.timeTip = serverTime - time.Now().Unix()
}

func (c *Client) getTimeDiff() int64 {
	return time.Now().Unix() + c.timeTip
}

func (c *Client) GetSteamId() SteamID {
	if c.session != nil {
		return c.session.SteamID
	}
	return SteamID(0)
}

func (c *Client) sessionID() (string, error) {
	if c.session == nil || c.session.ID == "" {
		return "", InvalidSessionError
	}
	return c.session.ID, nil
}

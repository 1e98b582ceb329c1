package pharos

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"utprint/lib/restyutil"
	"utprint/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

var tracer = telemetry.Tracer("utprint.lib.pharos")
var meter = telemetry.Meter("utprint.lib.pharos")

var uploadCounter, _ = meter.Int64Counter("pharos.uploads")
var pollCounter, _ = meter.Int64Counter("pharos.job_polls")

const (
	DefaultBaseUrl = "https://print.lib.utexas.edu/PharosAPI"

	// the session token, with KeepMeLoggedIn the server honors it for two weeks
	TokenCookie = "PharosAPI.X-PHAROS-USER-TOKEN"
	// path of the user's resources relative to the base url
	UserURICookie = "PharosAPI.X-PHAROS-USER-URI"
)

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client
	jar     http.CookieJar
}

type ClientOptions struct {
	BaseUrl          string
	Timeout          time.Duration
	CloudflareBypass bool
	// every request/response exchange is written here when set
	InstrumentOutput restyutil.InstrumentOutput
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	client.SetHeader("user-agent", "utprint")
	client.SetHeader("accept", "application/json")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, "utprint.lib.pharos/http")
	restyutil.InstrumentClient(client, opts.InstrumentOutput)

	return &Client{
		BaseUrl: baseUrl,
		Http:    client,
		jar:     jar,
	}, nil
}

func (c *Client) Close() {
	c.Http.GetClient().CloseIdleConnections()
}

// resetSession replaces the cookie jar, cookies of a rejected session are
// never sent again.
func (c *Client) resetSession() error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return err
	}
	c.jar = jar
	c.Http.SetCookieJar(jar)
	return nil
}

func (c *Client) cookie(name string) (string, bool) {
	for _, cookie := range c.jar.Cookies(c.BaseUrl) {
		if cookie.Name == name {
			return cookie.Value, true
		}
	}
	return "", false
}

// Token returns the current session token, or "" if the client has not
// logged in.
func (c *Client) Token() string {
	token, _ := c.cookie(TokenCookie)
	return token
}

func (c *Client) setToken(token string) {
	c.jar.SetCookies(c.BaseUrl, []*http.Cookie{{
		Name:  TokenCookie,
		Value: token,
		Path:  "/",
	}})
}

// UserURI returns the path of the logged in user's resources, it is only
// known after a successful logon.
func (c *Client) UserURI() (string, error) {
	uri, ok := c.cookie(UserURICookie)
	if !ok || uri == "" {
		return "", ErrNotLoggedIn
	}
	unescaped, err := url.PathUnescape(uri)
	if err == nil {
		uri = unescaped
	}
	return uri, nil
}

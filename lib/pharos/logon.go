package pharos

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Account struct {
	Balance float64
}

type logonResponse struct {
	Balance struct {
		Amount Amount `json:"Amount"`
	} `json:"Balance"`
}

// LogonToken resumes a session from a previously saved token. Any
// *APIError means the server no longer accepts the token.
func (c *Client) LogonToken(ctx context.Context, token string) (Account, error) {
	ctx, span := tracer.Start(ctx, "client:LogonToken")
	defer span.End()

	c.setToken(token)

	res, err := c.Http.R().
		SetContext(ctx).
		Get("/logon")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make logon request")
		return Account{}, err
	}
	account, err := readLogon(span, res)
	if err != nil {
		resetErr := c.resetSession()
		if resetErr != nil {
			span.RecordError(resetErr)
		}
		return Account{}, err
	}
	return account, nil
}

// LogonCredentials starts a new session with an EID and password. The
// server is asked to keep the session alive so its token can be reused.
func (c *Client) LogonCredentials(ctx context.Context, eid, password string) (Account, error) {
	ctx, span := tracer.Start(ctx, "client:LogonCredentials")
	defer span.End()

	// a new session, like the portal's login page
	err := c.resetSession()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to reset session")
		return Account{}, err
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParam("KeepMeLoggedIn", "yes").
		SetHeader("X-Authorization", authorizationHeader(eid, password)).
		Get("/logon")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make logon request")
		return Account{}, err
	}
	return readLogon(span, res)
}

func readLogon(span trace.Span, res *resty.Response) (Account, error) {
	if res.StatusCode() != http.StatusOK {
		err := errorFromResponse(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, "logon rejected")
		return Account{}, err
	}

	var parsed logonResponse
	err := decodeBody(res, &parsed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse logon response")
		return Account{}, err
	}
	return Account{Balance: float64(parsed.Balance.Amount)}, nil
}

func authorizationHeader(eid, password string) string {
	credentials := fmt.Sprintf("%s:%s", encodeURIComponent(eid), encodeURIComponent(password))
	return "PHAROS-USER " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

const upperhex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// encodeURIComponent escapes s the way the portal's login page does before
// encoding credentials.
func encodeURIComponent(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			out.WriteByte(c)
			continue
		}
		out.WriteByte('%')
		out.WriteByte(upperhex[c>>4])
		out.WriteByte(upperhex[c&15])
	}
	return out.String()
}

package pharos

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"utprint/lib/pharos/pharostest"
	"utprint/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setup(t testing.TB) (*Client, *pharostest.Server, func()) {
	cleanup := telemetry.SetupForTesting("test:lib/pharos")

	server := pharostest.NewServer()
	client, err := NewClient(ClientOptions{
		BaseUrl: server.URL(),
		Timeout: time.Second * 5,
	})
	if err != nil {
		t.Fatal(err)
	}

	return client, server, func() {
		client.Close()
		server.Close()
		cleanup()
	}
}

func writeDocument(t testing.TB, name, contents string) string {
	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEncodeURIComponent(t *testing.T) {
	testCases := []struct {
		in       string
		expected string
	}{
		{in: "abc123", expected: "abc123"},
		{in: "p@ss word", expected: "p%40ss%20word"},
		{in: "-_.!~*'()", expected: "-_.!~*'()"},
		{in: "a+b/c?d=e&f", expected: "a%2Bb%2Fc%3Fd%3De%26f"},
		{in: "café", expected: "caf%C3%A9"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, encodeURIComponent(test.in))
	}
}

func TestAuthorizationHeader(t *testing.T) {
	// base64("abc123:p%40ss")
	require.Equal(t, "PHAROS-USER YWJjMTIzOnAlNDBzcw==", authorizationHeader("abc123", "p@ss"))
}

func TestLogonCredentials(t *testing.T) {
	client, server, cleanup := setup(t)
	defer cleanup()

	server.Password = "p@ss word:1"
	server.Balance = 12.5

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		_, err := client.LogonCredentials(ctx, server.EID, "wrong")
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.Status)
		require.Equal(t, "Invalid username or password.", apiErr.UserMessage)
		require.Equal(t, "E401", string(apiErr.ErrorCode))
		require.True(t, IsAuthError(err))
		require.Equal(t, "", client.Token())
	}

	account, err := client.LogonCredentials(ctx, server.EID, server.Password)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 12.5, account.Balance)
	require.Equal(t, "token-1", client.Token())
	require.Equal(t, []string{"yes"}, server.KeepLoggedIn())

	uri, err := client.UserURI()
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "/users/42", uri)
}

func TestLogonToken(t *testing.T) {
	client, server, cleanup := setup(t)
	defer cleanup()

	server.Token = "saved-token"
	server.Balance = 3.25

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	account, err := client.LogonToken(ctx, "saved-token")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 3.25, account.Balance)
	require.Equal(t, "saved-token", client.Token())

	_, err = client.UserURI()
	require.NoError(t, err)
}

func TestLogonTokenExpired(t *testing.T) {
	client, server, cleanup := setup(t)
	defer cleanup()

	server.Token = "current-token"

	_, err := client.LogonToken(context.Background(), "stale-token")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "[Status 401] Your session has expired.", apiErr.Error())

	_, err = client.UserURI()
	require.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestLogonCredentialsDropsRejectedToken(t *testing.T) {
	client, server, cleanup := setup(t)
	defer cleanup()

	server.Token = "current-token"
	// a narrower path than the client's own token cookie, both would match
	server.CookiePath = "/PharosAPI"

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := client.LogonToken(ctx, "stale-token")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "", client.Token())

	_, err = client.LogonCredentials(ctx, server.EID, server.Password)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "token-1", client.Token())

	_, err = client.Jobs(ctx)
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, [][]string{
		{"stale-token"},
		{},
		{"token-1"},
	}, server.TokensSent())
}

func TestUploadAndWait(t *testing.T) {
	client, server, cleanup := setup(t)
	defer cleanup()

	server.PollsUntilDone = 3
	server.Cost = 0.8

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	_, err := client.LogonCredentials(ctx, server.EID, server.Password)
	if err != nil {
		t.Fatal(err)
	}

	path := writeDocument(t, "essay.pdf", "%PDF-1.4 fake")
	opts := PrintOptions{
		Color:           ColorMono,
		Sides:           Duplex,
		TwoPagesPerSide: true,
		Copies:          2,
		PageRange:       "1-5, 8",
	}
	job, err := client.Upload(ctx, opts, path)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "/users/42/printjobs/1", job.ID)
	require.Equal(t, "Processing", job.State)
	require.Equal(t, "essay.pdf", job.Name)

	uploads := server.Uploads()
	require.Len(t, uploads, 1)
	require.Equal(t, []string{"MetaData", "content"}, uploads[0].Parts)
	require.Equal(t, "essay.pdf", uploads[0].FileName)
	require.Equal(t, "application/pdf", uploads[0].ContentType)
	require.Equal(t, "%PDF-1.4 fake", string(uploads[0].Content))

	var metadata map[string]any
	err = json.Unmarshal([]byte(uploads[0].Metadata), &metadata)
	if err != nil {
		t.Fatal(err)
	}
	expected := map[string]any{
		"FinishingOptions": map[string]any{
			"Mono":            true,
			"Duplex":          true,
			"PagesPerSide":    "2",
			"Copies":          "2",
			"PageRange":       "1-5, 8",
			"DefaultPageSize": "Letter",
		},
		"PrinterName": nil,
	}
	if diff := cmp.Diff(expected, metadata); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}

	var polls []int
	done, err := client.WaitForJob(ctx, job.ID, WaitOptions{
		Interval: time.Millisecond * 10,
		OnPoll: func(attempt int, _ *Job) {
			polls = append(polls, attempt)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []int{1, 2, 3}, polls)
	require.True(t, done.Completed())
	require.Equal(t, 0.8, done.Cost)

	jobs, err := client.Jobs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, jobs, 1)
	require.Equal(t, job.ID, jobs[0].ID)
	require.Equal(t, 1, jobs[0].Pages)

	_, err = client.Job(ctx, "/users/42/printjobs/404")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestWaitForJobFailed(t *testing.T) {
	client, server, cleanup := setup(t)
	defer cleanup()

	server.FinalState = "Failed"

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := client.LogonCredentials(ctx, server.EID, server.Password)
	if err != nil {
		t.Fatal(err)
	}
	job, err := client.Upload(ctx, PrintOptions{Color: ColorFull, Sides: Simplex, Copies: 1}, writeDocument(t, "notes.txt", "hi"))
	if err != nil {
		t.Fatal(err)
	}

	failed, err := client.WaitForJob(ctx, job.ID, WaitOptions{Interval: time.Millisecond})
	require.ErrorIs(t, err, ErrJobFailed)
	require.Equal(t, "Failed", failed.State)
}

func TestWaitForJobCancelled(t *testing.T) {
	client, server, cleanup := setup(t)
	defer cleanup()

	server.PollsUntilDone = 1 << 30

	ctx := context.Background()
	_, err := client.LogonCredentials(ctx, server.EID, server.Password)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	polled := 0
	_, err = client.WaitForJob(ctx, "/users/42/printjobs/404", WaitOptions{
		Interval: time.Millisecond,
		OnPoll: func(_ int, job *Job) {
			require.Nil(t, job)
			polled++
			if polled == 2 {
				cancel()
			}
		},
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, polled)
}

func TestUploadErrors(t *testing.T) {
	client, server, cleanup := setup(t)
	defer cleanup()

	ctx := context.Background()
	path := writeDocument(t, "doc.pdf", "x")
	valid := PrintOptions{Color: ColorFull, Sides: Simplex, Copies: 1}

	{
		_, err := client.Upload(ctx, valid, path)
		require.ErrorIs(t, err, ErrNotLoggedIn)
	}

	_, err := client.LogonCredentials(ctx, server.EID, server.Password)
	if err != nil {
		t.Fatal(err)
	}

	{
		_, err := client.Upload(ctx, PrintOptions{Color: "sepia", Sides: Simplex, Copies: 1}, path)
		require.ErrorIs(t, err, ErrInvalidOptions)
	}
	{
		_, err := client.Upload(ctx, valid, filepath.Join(t.TempDir(), "missing.pdf"))
		require.True(t, errors.Is(err, os.ErrNotExist))
	}
	{
		_, err := client.Upload(ctx, valid, t.TempDir())
		require.Error(t, err)
	}
	require.Len(t, server.Uploads(), 0)
}

func TestHTMLErrorPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`<html><head><title>Print System Maintenance</title></head><body>down</body></html>`))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseUrl: server.URL + "/PharosAPI"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.LogonToken(context.Background(), "token")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	require.Equal(t, "Print System Maintenance", apiErr.UserMessage)
	require.False(t, IsAuthError(err))
}

func TestMalformedLogonResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Balance": {"Amount": "lots"}}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientOptions{BaseUrl: server.URL + "/PharosAPI"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = client.LogonToken(context.Background(), "token")
	require.ErrorIs(t, err, ErrUnexpectedResponse)
}

package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTerminal(t *testing.T) {
	ctx := context.Background()
	{
		out := &bytes.Buffer{}
		terminal := NewTerminal(strings.NewReader(" abc123 \nhunter 2\n"), out)
		eid, password, err := terminal.Credentials(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, "abc123", eid)
		// passwords are kept as typed
		require.Equal(t, "hunter 2", password)
		require.Equal(t, "\nEID: Password: \n", out.String())
	}
	{
		terminal := NewTerminal(strings.NewReader("abc123\r\npw"), &bytes.Buffer{})
		eid, password, err := terminal.Credentials(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, "abc123", eid)
		require.Equal(t, "pw", password)
	}
	{
		terminal := NewTerminal(strings.NewReader("abc123\n"), &bytes.Buffer{})
		_, _, err := terminal.Credentials(ctx)
		require.Error(t, err)
	}
	{
		terminal := NewTerminal(strings.NewReader("\npw\n"), &bytes.Buffer{})
		_, _, err := terminal.Credentials(ctx)
		require.Error(t, err)
	}
}

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestEnvAndChain(t *testing.T) {
	ctx := context.Background()

	empty := Env{Lookup: lookupFrom(nil)}
	{
		_, _, err := empty.Credentials(ctx)
		require.ErrorIs(t, err, ErrUnavailable)
	}
	{
		partial := Env{Lookup: lookupFrom(map[string]string{EIDEnv: "abc123"})}
		_, _, err := partial.Credentials(ctx)
		require.ErrorIs(t, err, ErrUnavailable)
	}

	full := Env{Lookup: lookupFrom(map[string]string{
		EIDEnv:      "abc123",
		PasswordEnv: "hunter2",
	})}
	{
		eid, password, err := full.Credentials(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, "abc123", eid)
		require.Equal(t, "hunter2", password)
	}
	{
		terminal := NewTerminal(strings.NewReader("xyz789\npw\n"), &bytes.Buffer{})
		eid, password, err := Chain{empty, terminal}.Credentials(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, "xyz789", eid)
		require.Equal(t, "pw", password)
	}
	{
		out := &bytes.Buffer{}
		terminal := NewTerminal(strings.NewReader(""), out)
		eid, _, err := Chain{full, terminal}.Credentials(ctx)
		if err != nil {
			t.Fatal(err)
		}
		require.Equal(t, "abc123", eid)
		// the terminal is never asked
		require.Empty(t, out.String())
	}
	{
		_, _, err := Chain{empty}.Credentials(ctx)
		require.ErrorIs(t, err, ErrUnavailable)
	}
}

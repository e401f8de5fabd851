package copilotsdk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/config"
)

func TestResolveOptions_Defaults(t *testing.T) {
	t.Setenv(cliPathEnvVar, "")

	options, err := resolveOptions(nil)
	require.NoError(t, err)

	require.Equal(t, config.DefaultLogLevel, options.LogLevel)
	require.True(t, options.AutoStart)
	require.True(t, options.UseLoggedInUser)
	require.False(t, options.UseStdio)
	require.Nil(t, options.Port)
	require.Empty(t, options.CLIPath)
	require.Zero(t, options.RequestTimeout)
}

func TestResolveOptions_CLIPathFromEnvironment(t *testing.T) {
	t.Setenv(cliPathEnvVar, "/opt/copilot/copilot")

	options, err := resolveOptions(nil)
	require.NoError(t, err)
	require.Equal(t, "/opt/copilot/copilot", options.CLIPath)
}

func TestResolveOptions_ExplicitPathBeatsEnvironment(t *testing.T) {
	t.Setenv(cliPathEnvVar, "/opt/copilot/copilot")

	options, err := resolveOptions([]Option{WithCLIPath("/usr/local/bin/copilot")})
	require.NoError(t, err)
	require.Equal(t, "/usr/local/bin/copilot", options.CLIPath)
}

func TestResolveOptions_TokenDisablesLoggedInUser(t *testing.T) {
	options, err := resolveOptions([]Option{WithGithubToken("ghp_secret")})
	require.NoError(t, err)
	require.Equal(t, "ghp_secret", options.GithubToken)
	require.False(t, options.UseLoggedInUser)
}

func TestResolveOptions_ExplicitLoggedInUserSurvivesToken(t *testing.T) {
	options, err := resolveOptions([]Option{
		WithGithubToken("ghp_secret"),
		WithUseLoggedInUser(true),
	})
	require.NoError(t, err)
	require.True(t, options.UseLoggedInUser)
}

func TestResolveOptions_CLIURLExclusions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{name: "with cli path", opts: []Option{WithCLIURL("localhost:8080"), WithCLIPath("/bin/copilot")}},
		{name: "with stdio", opts: []Option{WithCLIURL("localhost:8080"), WithStdio(true)}},
		{name: "with port", opts: []Option{WithCLIURL("localhost:8080"), WithPort(9000)}},
		{name: "with token", opts: []Option{WithCLIURL("localhost:8080"), WithGithubToken("ghp_x")}},
		{name: "with logged in user", opts: []Option{WithCLIURL("localhost:8080"), WithUseLoggedInUser(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(cliPathEnvVar, "")

			_, err := resolveOptions(tt.opts)
			require.Error(t, err)
		})
	}
}

func TestResolveOptions_CLIURLAlone(t *testing.T) {
	t.Setenv(cliPathEnvVar, "")

	options, err := resolveOptions([]Option{WithCLIURL("localhost:8080")})
	require.NoError(t, err)
	require.Equal(t, "localhost:8080", options.CLIURL)
}

func TestResolveOptions_PortAndTimeout(t *testing.T) {
	options, err := resolveOptions([]Option{
		WithPort(0),
		WithRequestTimeout(5 * time.Second),
	})
	require.NoError(t, err)
	require.NotNil(t, options.Port)
	require.Equal(t, 0, *options.Port)
	require.Equal(t, 5*time.Second, options.RequestTimeout)
}

func TestNewClient_InvalidOptions(t *testing.T) {
	_, err := NewClient(WithCLIURL("localhost:8080"), WithStdio(true))
	require.Error(t, err)

	_, err = NewClient(WithCLIURL("not a url"))
	require.Error(t, err)
}

func TestNewClient_StartsDisconnected(t *testing.T) {
	t.Setenv(cliPathEnvVar, "")

	c, err := NewClient(WithLogger(NopLogger()))
	require.NoError(t, err)
	require.Equal(t, StateDisconnected, c.State())
}

func TestDefineTool(t *testing.T) {
	tool := DefineTool("get_weather", "Current weather", nil, nil)
	require.Equal(t, "get_weather", tool.Name)
	require.Equal(t, "Current weather", tool.Description)
	require.Nil(t, tool.Parameters)
}

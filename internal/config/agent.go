package config

import (
	"errors"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentName         = "REFERRALS_AGENT_NAME"
	EnvAgentProviderName = "REFERRALS_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "REFERRALS_AGENT_BASE_URL"
	EnvAgentToken        = "REFERRALS_AGENT_TOKEN"
	EnvAgentDeployment   = "REFERRALS_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "REFERRALS_AGENT_API_VERSION"
	EnvAgentAuthType     = "REFERRALS_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "REFERRALS_AGENT_MODEL_NAME"
)

const defaultAgentName = "referral-drafter"

// FinalizeAgent layers the go-agents defaults, the configured values and the
// REFERRALS_AGENT_* overrides, then validates the result.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	loadAgentDefaults(c)
	loadAgentEnv(c)
	return validateAgent(c)
}

func loadAgentDefaults(c *gaconfig.AgentConfig) {
	if c.Name == "" {
		c.Name = defaultAgentName
	}
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(c)
	*c = defaults
}

func loadAgentEnv(c *gaconfig.AgentConfig) {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}

	if v := os.Getenv(EnvAgentName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model.Name = v
	}

	options := map[string]string{
		EnvAgentToken:      "token",
		EnvAgentDeployment: "deployment",
		EnvAgentAPIVersion: "api_version",
		EnvAgentAuthType:   "auth_type",
	}
	for env, key := range options {
		if v := os.Getenv(env); v != "" {
			c.Provider.Options[key] = v
		}
	}
}

func validateAgent(c *gaconfig.AgentConfig) error {
	switch {
	case c.Name == "":
		return errors.New("name required")
	case c.Provider == nil || c.Provider.Name == "":
		return errors.New("provider name required")
	case c.Model == nil || c.Model.Name == "":
		return errors.New("model name required")
	}
	return nil
}

package config

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultSystemProfile is used when no system_profile input is given.
const DefaultSystemProfile = "java_reviewer"

//go:embed profiles.yaml
var profilesYAML []byte

var profiles = mustLoadProfiles(profilesYAML)

func mustLoadProfiles(data []byte) map[string]string {
	parsed, err := parseProfiles(data)
	if err != nil {
		panic(err)
	}
	return parsed
}

func parseProfiles(data []byte) (map[string]string, error) {
	var parsed map[string]string
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse profiles: %w", err)
	}
	for name, prompt := range parsed {
		parsed[name] = strings.TrimSpace(prompt)
	}
	return parsed, nil
}

// SystemPrompt returns the reviewer persona for a profile name.
// Names are matched case-insensitively.
func SystemPrompt(profile string) (string, error) {
	prompt, ok := profiles[strings.ToLower(strings.TrimSpace(profile))]
	if !ok {
		return "", &ConfigurationError{
			Field: "system_profile",
			Err:   fmt.Errorf("unsupported system profile %q (valid: %s)", profile, strings.Join(ProfileNames(), ", ")),
		}
	}
	return prompt, nil
}

// ProfileNames lists the available profiles in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

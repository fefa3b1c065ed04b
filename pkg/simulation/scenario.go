package simulation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario represents a complete simulation scenario from a YAML file
type Scenario struct {
	LocalNames []string      `yaml:"local_names"`
	Peers      []string      `yaml:"peers"`
	Volumes    []VolumeSpec  `yaml:"volumes"`
	Failures   []FailureSpec `yaml:"failures"`
	Phantoms   []PhantomSpec `yaml:"phantoms"`
}

// VolumeSpec describes a preexisting volume in a scenario
type VolumeSpec struct {
	Name      string   `yaml:"name"`
	Bricks    []string `yaml:"bricks"`
	Started   bool     `yaml:"started"`
	Replica   int      `yaml:"replica,omitempty"`
	Stripe    int      `yaml:"stripe,omitempty"`
	Transport string   `yaml:"transport,omitempty"`
}

// FailureSpec defines when an action or query should fail
type FailureSpec struct {
	Action string `yaml:"action"`
	Target string `yaml:"target"`
	Error  string `yaml:"error"`
}

// PhantomSpec defines an action that reports success but changes nothing
type PhantomSpec struct {
	Action string `yaml:"action"`
	Target string `yaml:"target"`
}

// ScenarioFile is the root structure of a scenario YAML file
type ScenarioFile struct {
	Simulation Scenario `yaml:"simulation"`
}

// LoadScenarioFromFile loads a simulation scenario from a YAML file
func LoadScenarioFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenarioFile ScenarioFile
	if err := yaml.Unmarshal(data, &scenarioFile); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	for i, vol := range scenarioFile.Simulation.Volumes {
		if vol.Name == "" {
			return nil, fmt.Errorf("scenario volume %d has no name", i)
		}
	}

	return &scenarioFile.Simulation, nil
}

// ApplyScenarioToConfig applies a scenario to a simulation config
func ApplyScenarioToConfig(scenario *Scenario, config *Config) {
	if scenario == nil {
		return
	}

	config.mu.Lock()
	defer config.mu.Unlock()

	config.LocalNames = append(config.LocalNames, scenario.LocalNames...)
	config.Peers = append(config.Peers, scenario.Peers...)

	for _, vol := range scenario.Volumes {
		config.Volumes = append(config.Volumes, VolumeSeed{
			Name:      vol.Name,
			Bricks:    vol.Bricks,
			Started:   vol.Started,
			Replica:   vol.Replica,
			Stripe:    vol.Stripe,
			Transport: vol.Transport,
		})
	}

	for _, failure := range scenario.Failures {
		config.Failures = append(config.Failures, ConfiguredFailure{
			Operation: failure.Action,
			Target:    failure.Target,
			Error:     failure.Error,
		})
	}

	for _, phantom := range scenario.Phantoms {
		config.Phantoms = append(config.Phantoms, ConfiguredPhantom{
			Operation: phantom.Action,
			Target:    phantom.Target,
		})
	}
}

// LoadConfigWithScenario creates a new config with a scenario applied
func LoadConfigWithScenario(scenarioPath string) (*Config, error) {
	scenario, err := LoadScenarioFromFile(scenarioPath)
	if err != nil {
		return nil, err
	}

	config := NewConfig()
	ApplyScenarioToConfig(scenario, config)

	return config, nil
}

// NewClusterWithScenario creates a simulated cluster from a scenario file
func NewClusterWithScenario(scenarioPath string) (*Cluster, error) {
	config, err := LoadConfigWithScenario(scenarioPath)
	if err != nil {
		return nil, err
	}

	return NewCluster(config), nil
}

// SaveScenarioToFile saves a scenario to a YAML file
func SaveScenarioToFile(scenario *Scenario, path string) error {
	scenarioFile := ScenarioFile{
		Simulation: *scenario,
	}

	data, err := yaml.Marshal(scenarioFile)
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}

	return nil
}

// GenerateScenarioTemplate creates a template scenario with common patterns
func GenerateScenarioTemplate(templateType string) *Scenario {
	switch templateType {
	case "existing-pool":
		return &Scenario{
			LocalNames: []string{"gfs1"},
			Peers:      []string{"gfs2", "gfs3"},
			Volumes: []VolumeSpec{
				{
					Name:    "data",
					Bricks:  []string{"gfs1:/srv/gluster/data", "gfs2:/srv/gluster/data"},
					Started: true,
					Replica: 2,
				},
			},
		}

	case "probe-failure":
		return &Scenario{
			LocalNames: []string{"gfs1"},
			Failures: []FailureSpec{
				{
					Action: OpAddPeer,
					Target: "*",
					Error:  "peer probe: failed: Probe returned with Transport endpoint is not connected",
				},
			},
		}

	case "phantom-create":
		return &Scenario{
			LocalNames: []string{"gfs1"},
			Phantoms: []PhantomSpec{
				{Action: OpCreateVolume, Target: "*"},
			},
		}

	default:
		return &Scenario{
			LocalNames: []string{},
			Peers:      []string{},
			Volumes:    []VolumeSpec{},
			Failures:   []FailureSpec{},
			Phantoms:   []PhantomSpec{},
		}
	}
}

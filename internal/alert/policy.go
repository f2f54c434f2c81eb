package alert

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/alertwatch/internal/models"
	"github.com/good-yellow-bee/alertwatch/internal/notify"
)

// Step describes one escalation level: how long an alert must dwell at
// the previous level before advancing, and how the advance is notified.
type Step struct {
	Dwell    time.Duration
	Priority int
	Channels []notify.Channel
}

// Policy maps severity to its ordered escalation steps. An alert at
// level L advances via steps[L]; len(steps) is the terminal level.
type Policy struct {
	steps map[int][]Step
}

// DefaultDwell is the per-level wait when no policy overrides it.
const DefaultDwell = 15 * time.Minute

// DefaultPolicy builds the implicit policy: every severity gets a fixed
// dwell per level, each level raises the notification priority one step
// capped at 5, and higher severities escalate further.
func DefaultPolicy() *Policy {
	levelsBySeverity := map[int]int{1: 1, 2: 2, 3: 2, 4: 3, 5: 3}

	steps := make(map[int][]Step, models.SeverityMax)
	for severity := models.SeverityMin; severity <= models.SeverityMax; severity++ {
		n := levelsBySeverity[severity]
		list := make([]Step, 0, n)
		for level := 0; level < n; level++ {
			priority := severity + level + 1
			if priority > models.SeverityMax {
				priority = models.SeverityMax
			}
			list = append(list, Step{
				Dwell:    DefaultDwell,
				Priority: priority,
				Channels: []notify.Channel{notify.ChannelPush, notify.ChannelEmail},
			})
		}
		steps[severity] = list
	}
	return &Policy{steps: steps}
}

// Steps returns the escalation steps for a severity.
func (p *Policy) Steps(severity int) []Step {
	return p.steps[models.ClampSeverity(severity)]
}

// MaxLevel returns the terminal escalation level for a severity.
func (p *Policy) MaxLevel(severity int) int {
	return len(p.Steps(severity))
}

// BasePriority is the notification priority for a freshly created
// alert: the severity itself.
func (p *Policy) BasePriority(severity int) int {
	return models.ClampSeverity(severity)
}

// StepConfig is the YAML form of a Step.
type StepConfig struct {
	Dwell    string   `yaml:"dwell"`
	Priority int      `yaml:"priority"`
	Channels []string `yaml:"channels"`
}

// PolicyConfig is the YAML form of a Policy.
type PolicyConfig struct {
	Severities map[int][]StepConfig `yaml:"severities"`
}

// LoadPolicy reads an escalation policy from a YAML file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}

	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	return PolicyFromConfig(cfg)
}

// PolicyFromConfig builds a Policy from its configuration form.
// Severities without configured steps fall back to the default policy.
func PolicyFromConfig(cfg PolicyConfig) (*Policy, error) {
	policy := DefaultPolicy()

	for severity, stepCfgs := range cfg.Severities {
		if severity < models.SeverityMin || severity > models.SeverityMax {
			return nil, fmt.Errorf("severity %d out of range [1,5]", severity)
		}
		steps := make([]Step, 0, len(stepCfgs))
		for i, sc := range stepCfgs {
			step := Step{Priority: sc.Priority}
			if sc.Dwell != "" {
				d, err := time.ParseDuration(sc.Dwell)
				if err != nil {
					return nil, fmt.Errorf("severity %d step %d: invalid dwell %q: %w", severity, i, sc.Dwell, err)
				}
				step.Dwell = d
			} else {
				step.Dwell = DefaultDwell
			}
			if step.Priority < 1 || step.Priority > models.SeverityMax {
				return nil, fmt.Errorf("severity %d step %d: priority %d out of range [1,5]", severity, i, sc.Priority)
			}
			if len(sc.Channels) == 0 {
				step.Channels = []notify.Channel{notify.ChannelPush, notify.ChannelEmail}
			}
			for _, ch := range sc.Channels {
				switch notify.Channel(ch) {
				case notify.ChannelPush, notify.ChannelEmail:
					step.Channels = append(step.Channels, notify.Channel(ch))
				default:
					return nil, fmt.Errorf("severity %d step %d: unknown channel %q", severity, i, ch)
				}
			}
			steps = append(steps, step)
		}
		policy.steps[severity] = steps
	}
	return policy, nil
}

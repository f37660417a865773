package config

import (
	"fmt"

	pserr "github.com/standardbeagle/polyscan/internal/errors"
)

// Validate checks configured values for internal consistency.
func (c *Config) Validate() error {
	if c.Engine.QueryTimeoutMicros < 0 {
		return pserr.NewConfigError("engine.query_timeout_micros",
			fmt.Sprint(c.Engine.QueryTimeoutMicros), fmt.Errorf("must be >= 0"))
	}
	if c.Engine.QueryMatchLimit < 0 {
		return pserr.NewConfigError("engine.query_match_limit",
			fmt.Sprint(c.Engine.QueryMatchLimit), fmt.Errorf("must be >= 0"))
	}
	if c.Engine.MaxFileSizeKB <= 0 {
		return pserr.NewConfigError("engine.max_file_size_kb",
			fmt.Sprint(c.Engine.MaxFileSizeKB), fmt.Errorf("must be positive"))
	}
	if c.Learner.SampleSize <= 0 {
		return pserr.NewConfigError("learner.sample_size",
			fmt.Sprint(c.Learner.SampleSize), fmt.Errorf("must be positive"))
	}
	if c.Learner.MaxFileSizeKB <= 0 {
		return pserr.NewConfigError("learner.max_file_size_kb",
			fmt.Sprint(c.Learner.MaxFileSizeKB), fmt.Errorf("must be positive"))
	}
	if c.Learner.MinConfidence < 0 || c.Learner.MinConfidence > 1 {
		return pserr.NewConfigError("learner.min_confidence",
			fmt.Sprint(c.Learner.MinConfidence), fmt.Errorf("must be within [0,1]"))
	}
	if c.Learner.Parallelism < 0 {
		return pserr.NewConfigError("learner.parallelism",
			fmt.Sprint(c.Learner.Parallelism), fmt.Errorf("must be >= 0"))
	}
	return nil
}

package automation

import "time"

// Timings are the delays and bounds of one automation run.
type Timings struct {
	LoadPoll      time.Duration `yaml:"LoadPoll" json:"loadPoll"`
	LoadTimeout   time.Duration `yaml:"LoadTimeout" json:"loadTimeout"`
	DeliveryRetry time.Duration `yaml:"DeliveryRetry" json:"deliveryRetry"`

	SettleDelay   time.Duration `yaml:"SettleDelay" json:"settleDelay"`
	ActivateDelay time.Duration `yaml:"ActivateDelay" json:"activateDelay"`
	ReclickDelay  time.Duration `yaml:"ReclickDelay" json:"reclickDelay"`
	FocusAttempts int           `yaml:"FocusAttempts" json:"focusAttempts"`
	FocusRetry    time.Duration `yaml:"FocusRetry" json:"focusRetry"`

	ShortPromptLimit int           `yaml:"ShortPromptLimit" json:"shortPromptLimit"`
	ShortPromptDelay time.Duration `yaml:"ShortPromptDelay" json:"shortPromptDelay"`
	RefocusEvery     int           `yaml:"RefocusEvery" json:"refocusEvery"`
	RefocusDelay     time.Duration `yaml:"RefocusDelay" json:"refocusDelay"`
	CharDelay        time.Duration `yaml:"CharDelay" json:"charDelay"`
	PostInsertDelay  time.Duration `yaml:"PostInsertDelay" json:"postInsertDelay"`
	ThinkingDelay    time.Duration `yaml:"ThinkingDelay" json:"thinkingDelay"`

	ResponsePoll time.Duration `yaml:"ResponsePoll" json:"responsePoll"`
	ResponseMax  time.Duration `yaml:"ResponseMax" json:"responseMax"`
	CloseDelay   time.Duration `yaml:"CloseDelay" json:"closeDelay"`
}

// DefaultTimings returns the tuned production values.
func DefaultTimings() Timings {
	return Timings{
		LoadPoll:      500 * time.Millisecond,
		LoadTimeout:   60 * time.Second,
		DeliveryRetry: 2 * time.Second,

		SettleDelay:   4 * time.Second,
		ActivateDelay: 300 * time.Millisecond,
		ReclickDelay:  200 * time.Millisecond,
		FocusAttempts: 3,
		FocusRetry:    50 * time.Millisecond,

		ShortPromptLimit: 10,
		ShortPromptDelay: 100 * time.Millisecond,
		RefocusEvery:     5,
		RefocusDelay:     50 * time.Millisecond,
		CharDelay:        80 * time.Millisecond,
		PostInsertDelay:  500 * time.Millisecond,
		ThinkingDelay:    500 * time.Millisecond,

		ResponsePoll: 500 * time.Millisecond,
		ResponseMax:  2 * time.Minute,
		CloseDelay:   5 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultTimings.
func (t Timings) WithDefaults() Timings {
	d := DefaultTimings()
	fill := func(v *time.Duration, def time.Duration) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&t.LoadPoll, d.LoadPoll)
	fill(&t.LoadTimeout, d.LoadTimeout)
	fill(&t.DeliveryRetry, d.DeliveryRetry)
	fill(&t.SettleDelay, d.SettleDelay)
	fill(&t.ActivateDelay, d.ActivateDelay)
	fill(&t.ReclickDelay, d.ReclickDelay)
	fill(&t.FocusRetry, d.FocusRetry)
	fill(&t.ShortPromptDelay, d.ShortPromptDelay)
	fill(&t.RefocusDelay, d.RefocusDelay)
	fill(&t.CharDelay, d.CharDelay)
	fill(&t.PostInsertDelay, d.PostInsertDelay)
	fill(&t.ThinkingDelay, d.ThinkingDelay)
	fill(&t.ResponsePoll, d.ResponsePoll)
	fill(&t.ResponseMax, d.ResponseMax)
	fill(&t.CloseDelay, d.CloseDelay)
	if t.FocusAttempts <= 0 {
		t.FocusAttempts = d.FocusAttempts
	}
	if t.ShortPromptLimit <= 0 {
		t.ShortPromptLimit = d.ShortPromptLimit
	}
	if t.RefocusEvery <= 0 {
		t.RefocusEvery = d.RefocusEvery
	}
	return t
}

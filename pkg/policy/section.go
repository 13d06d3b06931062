package policy

// Section is a configuration section shared by every file pattern of its
// header. It counts the patterns still waiting to be processed and makes sure
// shared pre and post rotate scripts run at most once.
type Section struct {
	Policy Policy

	refs    int
	rotated bool

	preRotateDone  bool
	postRotateDone bool
}

func NewSection(p *Policy) *Section {
	return &Section{Policy: *p.Clone()}
}

func (s *Section) Retain() {
	s.refs++
}

// Release marks one pattern as processed and reports whether it was the last one.
func (s *Section) Release() bool {
	if s.refs > 0 {
		s.refs--
	}

	return s.refs == 0
}

// MarkRotated records that at least one file of the section was rotated.
func (s *Section) MarkRotated() {
	s.rotated = true
}

func (s *Section) ProcessCount() int {
	return s.refs
}

// TakeSharedPreRotate returns the prerotate script the first time it is
// called for a section with sharedscripts, and nothing afterwards.
func (s *Section) TakeSharedPreRotate() ([]string, bool) {
	if !s.Policy.SharedScripts || s.preRotateDone || len(s.Policy.PreRotate) == 0 {
		return nil, false
	}

	s.preRotateDone = true

	return s.Policy.PreRotate, true
}

// TakeSharedPostRotate is the postrotate counterpart of TakeSharedPreRotate.
// It only yields the script once every pattern of the section was released
// and something was rotated.
func (s *Section) TakeSharedPostRotate() ([]string, bool) {
	if !s.Policy.SharedScripts || s.postRotateDone || s.refs > 0 || !s.rotated || len(s.Policy.PostRotate) == 0 {
		return nil, false
	}

	s.postRotateDone = true

	return s.Policy.PostRotate, true
}

type Entry struct {
	Pattern string
	Section *Section
}

// Config is the result of parsing: the global policy and every
// (pattern, section) pair in declaration order.
type Config struct {
	Global  *Policy
	Entries []Entry
}

func NewConfig() *Config {
	return &Config{Global: New()}
}

// Lookup returns the sections registered for the pattern, in declaration order.
func (c *Config) Lookup(pattern string) []*Section {
	var result []*Section

	for _, e := range c.Entries {
		if e.Pattern == pattern {
			result = append(result, e.Section)
		}
	}

	return result
}

func (c *Config) register(pattern string, s *Section) {
	s.Retain()
	c.Entries = append(c.Entries, Entry{Pattern: pattern, Section: s})
}

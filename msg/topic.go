package msg

import (
	"regexp"
	"strings"

	"github.com/huangjunwen/rowpub"
)

var (
	projectRegexp = regexp.MustCompile(`^([a-z][a-z0-9.-]*[a-z0-9]:)?[a-z][-a-z0-9]{4,28}[a-z0-9]$`)
	topicRegexp   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9\-_.~+%]{2,254}$`)
)

// Topic identifies a destination topic: "projects/<Project>/topics/<Name>".
type Topic struct {
	Project string
	Name    string
}

// ParseTopic parses a topic identifier of the form "projects/<PROJECT>/topics/<TOPIC>".
// It returns a rowpub.ConfigError if s is malformed.
func ParseTopic(s string) (Topic, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 4 || parts[0] != "projects" || parts[2] != "topics" {
		return Topic{}, rowpub.Errorf(rowpub.ConfigError, "topic %q is not of form projects/<PROJECT>/topics/<TOPIC>", s)
	}
	t := Topic{
		Project: parts[1],
		Name:    parts[3],
	}
	if err := t.Validate(); err != nil {
		return Topic{}, err
	}
	return t, nil
}

// MustParseTopic is like ParseTopic but panics on error.
func MustParseTopic(s string) Topic {
	t, err := ParseTopic(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Validate checks project and topic name.
func (t Topic) Validate() error {
	if !projectRegexp.MatchString(t.Project) {
		return rowpub.Errorf(rowpub.ConfigError, "invalid project id %q", t.Project)
	}
	if !topicRegexp.MatchString(t.Name) {
		return rowpub.Errorf(rowpub.ConfigError, "invalid topic name %q", t.Name)
	}
	if strings.HasPrefix(strings.ToLower(t.Name), "goog") {
		return rowpub.Errorf(rowpub.ConfigError, "topic name %q must not start with 'goog'", t.Name)
	}
	return nil
}

// String returns the full topic identifier.
func (t Topic) String() string {
	return "projects/" + t.Project + "/topics/" + t.Name
}

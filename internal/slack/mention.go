package slack

import "fmt"

// Mention is a fixed team that a message can cc.
type Mention string

const (
	MentionWebTeam Mention = "web"
	MentionAPITeam Mention = "api"
)

// userGroupIDs were copied by hand from Slack; groups change rarely enough
// that resolving them by name isn't worth the extra scope.
var userGroupIDs = map[Mention]string{
	MentionWebTeam: "SAWPVDSUW",
	MentionAPITeam: "SAVLBV4J0",
}

// ParseMention validates a mention keyword.
func ParseMention(s string) (Mention, error) {
	m := Mention(s)
	if _, ok := userGroupIDs[m]; !ok {
		return "", fmt.Errorf("unknown mention %q, expected one of: web, api", s)
	}
	return m, nil
}

// UserGroupID returns the Slack user group ID for m.
func (m Mention) UserGroupID() string {
	return userGroupIDs[m]
}

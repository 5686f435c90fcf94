package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

var identityAdjectives = []string{
	"Adventurous", "Brave", "Creative", "Daring", "Eager", "Friendly", "Generous", "Happy", "Inquisitive",
	"Jovial", "Kind", "Lively", "Mighty", "Noble", "Optimistic", "Passionate", "Quirky", "Reliable",
	"Sincere", "Thoughtful", "Unique", "Valiant", "Wise", "Xenodochial", "Youthful", "Zealous",
}

var identityNouns = []string{
	"Artist", "Builder", "Chef", "Dancer", "Engineer", "Farmer", "Gardener", "Hiker", "Inventor",
	"Jester", "Knight", "Linguist", "Musician", "Nurse", "Officer", "Painter", "Quizzer", "Ranger",
	"Scientist", "Traveler", "Unicorn", "Volunteer", "Writer", "Xenophile", "Yogi", "Zookeeper",
}

// MaxIdentityLength bounds identities accepted by the relay and the CLI.
const MaxIdentityLength = 64

var identityPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// GenerateIdentity returns a readable random identity such as "BraveKnight42".
func GenerateIdentity() string {
	adjective := identityAdjectives[randomIndex(len(identityAdjectives))]
	noun := identityNouns[randomIndex(len(identityNouns))]
	return fmt.Sprintf("%s%s%d", adjective, noun, randomIndex(1000))
}

// GenerateSessionID returns a six digit session id in [100000, 999999].
func GenerateSessionID() string {
	return fmt.Sprintf("%d", 100000+randomIndex(900000))
}

// ValidateIdentity reports whether id can be used as a routing address.
func ValidateIdentity(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("identity cannot be empty")
	}
	if len(id) > MaxIdentityLength {
		return fmt.Errorf("identity longer than %d characters", MaxIdentityLength)
	}
	if !identityPattern.MatchString(id) {
		return fmt.Errorf("identity %q contains unsupported characters", id)
	}
	return nil
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("failed to generate random index: %v", err))
	}
	return int(n.Int64())
}

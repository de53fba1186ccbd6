package protocol

import (
	"strconv"
	"strings"
)

// Verb identifies which command variant a parsed Command carries.
type Verb int

const (
	VerbSet Verb = iota
	VerbGet
	VerbDel
	VerbExin
)

func (v Verb) String() string {
	switch v {
	case VerbSet:
		return "SET"
	case VerbGet:
		return "GET"
	case VerbDel:
		return "DEL"
	case VerbExin:
		return "EXIN"
	default:
		return "UNKNOWN"
	}
}

// Command is the tagged command variant the parser produces. Only the
// fields relevant to Verb are populated; Value, TTL and HasTTL are
// meaningful only for VerbSet.
type Command struct {
	Verb    Verb
	Key     string
	Value   []byte
	TTL     int // seconds; meaningful only when HasTTL is true
	HasTTL  bool
}

// Parse tokenizes a single frame payload (already UTF-8 validated by the
// caller) into a Command. CLOSE is matched by the connection loop before
// Parse is ever called, so it is not a recognized verb here.
func Parse(payload string) (Command, error) {
	payload = strings.TrimRight(payload, " \t\r\n")
	if payload == "" {
		return Command{}, newErr(ParseErrorKind, "empty command")
	}

	verb, rest, hasRest := cutVerb(payload)

	switch verb {
	case "SET":
		return parseSet(rest, hasRest)
	case "GET":
		key, err := parseSingleKey(rest, hasRest, "GET")
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbGet, Key: key}, nil
	case "DEL":
		key, err := parseSingleKey(rest, hasRest, "DEL")
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbDel, Key: key}, nil
	case "EXIN":
		key, err := parseSingleKey(rest, hasRest, "EXIN")
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: VerbExin, Key: key}, nil
	default:
		return Command{}, newErr(ParseErrorKind, "unrecognized command verb")
	}
}

// cutVerb splits "VERB rest..." into its verb and the remainder, which is
// empty (and hasRest false) when the payload was a bare verb with no space.
func cutVerb(payload string) (verb, rest string, hasRest bool) {
	idx := strings.IndexByte(payload, ' ')
	if idx == -1 {
		return payload, "", false
	}
	return payload[:idx], payload[idx+1:], true
}

// parseSingleKey validates that rest is exactly one non-empty, space-free token.
func parseSingleKey(rest string, hasRest bool, verb string) (string, error) {
	if !hasRest || rest == "" {
		return "", newErr(ParseErrorKind, verb+" requires a key")
	}
	if strings.IndexByte(rest, ' ') != -1 {
		return "", newErr(ParseErrorKind, verb+" takes exactly one key")
	}
	return rest, nil
}

// parseSet handles "<key> <value...> [EX <n>]". The key is the first token;
// the value is everything after it up to an optional right-anchored "EX <n>"
// suffix, which is never split out of a value that does not end with it.
func parseSet(rest string, hasRest bool) (Command, error) {
	if !hasRest {
		return Command{}, newErr(ParseErrorKind, "SET requires a key and a value")
	}

	keyEnd := strings.IndexByte(rest, ' ')
	if keyEnd == -1 {
		return Command{}, newErr(ParseErrorKind, "SET requires a value")
	}

	key := rest[:keyEnd]
	if key == "" {
		return Command{}, newErr(ParseErrorKind, "SET key must not be empty")
	}

	valuePart := rest[keyEnd+1:]
	if valuePart == "" {
		return Command{}, newErr(ParseErrorKind, "SET value must not be empty")
	}

	value, ttl, hasTTL, err := stripTrailingEX(valuePart)
	if err != nil {
		return Command{}, err
	}
	if value == "" {
		return Command{}, newErr(ParseErrorKind, "SET value must not be empty")
	}

	return Command{Verb: VerbSet, Key: key, Value: []byte(value), TTL: ttl, HasTTL: hasTTL}, nil
}

// stripTrailingEX scans valuePart from the right for a trailing "EX <n>"
// clause; if found, it is stripped and the remaining prefix is returned as
// the value. Once the "EX" token itself is identified, the clause is
// committed to: a non-positive or non-numeric n is a parse error, not a
// fallback to treating "EX <n>" as literal value text. Otherwise (no
// trailing "EX" token at all) valuePart is returned verbatim with hasTTL
// false — the value is never split on internal whitespace.
func stripTrailingEX(valuePart string) (value string, ttlSecs int, hasTTL bool, err error) {
	lastSpace := strings.LastIndexByte(valuePart, ' ')
	if lastSpace == -1 {
		return valuePart, 0, false, nil
	}
	numToken := valuePart[lastSpace+1:]
	before := valuePart[:lastSpace]

	secondSpace := strings.LastIndexByte(before, ' ')
	var exToken, remainder string
	if secondSpace == -1 {
		exToken = before
		remainder = ""
	} else {
		exToken = before[secondSpace+1:]
		remainder = before[:secondSpace]
	}

	if exToken != "EX" {
		return valuePart, 0, false, nil
	}
	n, ok := parsePositiveInt(numToken)
	if !ok {
		return "", 0, false, newErr(ParseErrorKind, "EX requires a TTL of at least 1 second")
	}
	return remainder, n, true, nil
}

func parsePositiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

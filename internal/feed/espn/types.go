package espn

import (
	"encoding/json"
	"strconv"
	"strings"
)

// scoreboardResponse is the subset of the site API scoreboard document the pipeline reads.
// Events is a pointer so a payload without the collection can be told apart from an empty one.
type scoreboardResponse struct {
	Events *[]eventResponse `json:"events"`
}

type eventResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Status       statusResponse        `json:"status"`
	Competitions []competitionResponse `json:"competitions"`
}

type competitionResponse struct {
	ID          string               `json:"id"`
	Status      statusResponse       `json:"status"`
	Competitors []competitorResponse `json:"competitors"`
	Details     []detailResponse     `json:"details"`
}

type statusResponse struct {
	DisplayClock string             `json:"displayClock"`
	Type         statusTypeResponse `json:"type"`
}

type statusTypeResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	Completed bool   `json:"completed"`
	Detail    string `json:"detail"`
}

type competitorResponse struct {
	ID       string       `json:"id"`
	HomeAway string       `json:"homeAway"`
	Score    score        `json:"score"`
	Team     teamResponse `json:"team"`
}

type teamResponse struct {
	ID           string `json:"id"`
	Abbreviation string `json:"abbreviation"`
	DisplayName  string `json:"displayName"`
}

type detailResponse struct {
	Type             detailTypeResponse `json:"type"`
	Clock            clockResponse      `json:"clock"`
	Team             teamResponse       `json:"team"`
	ScoringPlay      bool               `json:"scoringPlay"`
	YellowCard       bool               `json:"yellowCard"`
	RedCard          bool               `json:"redCard"`
	AthletesInvolved []athleteResponse  `json:"athletesInvolved"`
}

type detailTypeResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type clockResponse struct {
	Value        float64 `json:"value"`
	DisplayValue string  `json:"displayValue"`
}

type athleteResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// score accepts both the string and numeric encodings the scoreboard uses.
type score int

func (s *score) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*s = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	n := json.Number(raw)
	v, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return err
		}
		v = int64(f)
	}
	*s = score(v)
	return nil
}

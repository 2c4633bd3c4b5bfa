package moderation

import (
	"bytes"
	"encoding/json"
)

// Threshold is the probability above which a media score flags content.
const Threshold = 0.5

type Reason string

const (
	ReasonProfanity Reason = "profanity"
	ReasonPersonal  Reason = "personal-info"
	ReasonLink      Reason = "link"
	ReasonNudity    Reason = "nudity"
	ReasonWeapon    Reason = "weapon"
	ReasonAlcohol   Reason = "alcohol"
	ReasonDrugs     Reason = "drugs"
	ReasonOffensive Reason = "offensive"
	ReasonGore      Reason = "gore"
)

// Verdict is the normalized outcome of one moderation call.
type Verdict struct {
	Flagged bool
	Reasons []Reason
}

func newVerdict(reasons []Reason) Verdict {
	seen := make(map[Reason]bool, len(reasons))
	out := make([]Reason, 0, len(reasons))
	for _, r := range reasons {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return Verdict{Flagged: len(out) > 0, Reasons: out}
}

// Has reports whether r triggered the verdict.
func (v Verdict) Has(r Reason) bool {
	for _, got := range v.Reasons {
		if got == r {
			return true
		}
	}
	return false
}

type providerError struct {
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type matchSet struct {
	Matches []json.RawMessage `json:"matches"`
}

type textResponse struct {
	Status    string         `json:"status"`
	Error     *providerError `json:"error,omitempty"`
	Profanity matchSet       `json:"profanity"`
	Personal  matchSet       `json:"personal"`
	Link      matchSet       `json:"link"`
}

func (r textResponse) reasons() []Reason {
	var out []Reason
	if len(r.Profanity.Matches) > 0 {
		out = append(out, ReasonProfanity)
	}
	if len(r.Personal.Matches) > 0 {
		out = append(out, ReasonPersonal)
	}
	if len(r.Link.Matches) > 0 {
		out = append(out, ReasonLink)
	}
	return out
}

// score accepts both a bare probability and an object carrying "prob",
// since the provider uses either depending on model version.
type score float64

func (s *score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '{' {
		var obj struct {
			Prob float64 `json:"prob"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		*s = score(obj.Prob)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*s = score(f)
	return nil
}

func (s score) over() bool { return float64(s) > Threshold }

type nudityScores struct {
	SexualActivity score `json:"sexual_activity"`
	SexualDisplay  score `json:"sexual_display"`
	Erotica        score `json:"erotica"`
	Sextoy         score `json:"sextoy"`
	Suggestive     score `json:"suggestive"`
}

func (n nudityScores) over() bool {
	return n.SexualActivity.over() || n.SexualDisplay.over() || n.Erotica.over() ||
		n.Sextoy.over() || n.Suggestive.over()
}

type mediaScores struct {
	Nudity    *nudityScores `json:"nudity,omitempty"`
	Weapon    score         `json:"weapon"`
	Alcohol   score         `json:"alcohol"`
	Drugs     score         `json:"drugs"`
	Offensive score         `json:"offensive"`
	Gore      score         `json:"gore"`
}

func (m mediaScores) reasons() []Reason {
	var out []Reason
	if m.Nudity != nil && m.Nudity.over() {
		out = append(out, ReasonNudity)
	}
	if m.Weapon.over() {
		out = append(out, ReasonWeapon)
	}
	if m.Alcohol.over() {
		out = append(out, ReasonAlcohol)
	}
	if m.Drugs.over() {
		out = append(out, ReasonDrugs)
	}
	if m.Offensive.over() {
		out = append(out, ReasonOffensive)
	}
	if m.Gore.over() {
		out = append(out, ReasonGore)
	}
	return out
}

// mediaResponse covers both the image shape (scores at top level) and the
// video shape (scores per frame under data.frames).
type mediaResponse struct {
	Status string         `json:"status"`
	Error  *providerError `json:"error,omitempty"`
	mediaScores
	Data *struct {
		Frames []mediaScores `json:"frames"`
	} `json:"data,omitempty"`
}

func (r mediaResponse) reasons() []Reason {
	out := r.mediaScores.reasons()
	if r.Data != nil {
		for _, f := range r.Data.Frames {
			out = append(out, f.reasons()...)
		}
	}
	return out
}

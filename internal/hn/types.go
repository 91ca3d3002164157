package hn

// Item is one Hacker News item as served by the Firebase API. Fields that
// the API omits decode to their zero values; downstream code treats a zero
// score/time as "absent".
//
// See https://github.com/HackerNews/API#items for the full schema.
type Item struct {
	ID          int64   `json:"id"`
	Deleted     bool    `json:"deleted,omitempty"`
	Type        string  `json:"type,omitempty"`
	By          string  `json:"by"`
	Time        int64   `json:"time"`
	Text        string  `json:"text,omitempty"`
	Dead        bool    `json:"dead,omitempty"`
	Parent      int64   `json:"parent,omitempty"`
	Poll        int64   `json:"poll,omitempty"`
	Kids        []int64 `json:"kids,omitempty"`
	URL         string  `json:"url,omitempty"`
	Score       int     `json:"score,omitempty"`
	Title       string  `json:"title,omitempty"`
	Parts       []int64 `json:"parts,omitempty"`
	Descendants int     `json:"descendants,omitempty"`
}

// Feed enumerates the live-data endpoints the API exposes.
type Feed int

const (
	FeedTop Feed = iota
	FeedNew
	FeedBest
	FeedAsk
	FeedShow
	FeedJob
	FeedMaxItem
	FeedUpdates
)

// feedConfig describes one live-data endpoint.
type feedConfig struct {
	endpoint     string
	label        string
	defaultLimit int
	// defaultMinScore is advisory; the filter chain owns thresholds but
	// feed metadata keeps the API's suggested floor available to callers.
	defaultMinScore int
}

var feedConfigs = map[Feed]feedConfig{
	FeedTop:     {endpoint: "topstories.json", label: "Top Stories", defaultLimit: 500, defaultMinScore: 150},
	FeedNew:     {endpoint: "newstories.json", label: "New Stories", defaultLimit: 500},
	FeedBest:    {endpoint: "beststories.json", label: "Best Stories", defaultLimit: 100, defaultMinScore: 150},
	FeedAsk:     {endpoint: "askstories.json", label: "Ask HN Stories", defaultLimit: 200},
	FeedShow:    {endpoint: "showstories.json", label: "Show HN Stories", defaultLimit: 200},
	FeedJob:     {endpoint: "jobstories.json", label: "Job Stories", defaultLimit: 200},
	FeedMaxItem: {endpoint: "maxitem.json", label: "Max Item Id"},
	FeedUpdates: {endpoint: "updates.json", label: "Updates"},
}

func (f Feed) String() string {
	if c, ok := feedConfigs[f]; ok {
		return c.label
	}
	return "unknown feed"
}

// DefaultLimit reports the feed's documented maximum result count, or 0 for
// feeds that do not return id lists.
func (f Feed) DefaultLimit() int { return feedConfigs[f].defaultLimit }

// LiveKind tags which variant of LiveData is populated.
type LiveKind int

const (
	// LiveIDs carries a ranked id list (top/new/best/ask/show/job).
	LiveIDs LiveKind = iota
	// LiveMaxItem carries the largest item id currently assigned.
	LiveMaxItem
	// LiveUpdates carries recently changed items and profiles.
	LiveUpdates
)

// Updates is the payload of the updates feed.
type Updates struct {
	Items    []int64  `json:"items"`
	Profiles []string `json:"profiles"`
}

// LiveData is the result of a live-data fetch. Exactly one variant is
// meaningful, selected by Kind.
type LiveData struct {
	Kind    LiveKind
	IDs     []int64
	MaxItem int64
	Updates Updates
}

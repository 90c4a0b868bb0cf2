package model

// Names of the analyses a run can populate.
const (
	GeographyVisitors = "geography_visitors"
	ChannelVisitors   = "channel_visitors"
	RevenueSegments   = "revenue_segments"
	SignupConversion  = "signup_conversion"
	GeoChannelMatrix  = "geo_channel_matrix"
	VisitorTrends     = "visitor_trends"
)

// ResultStore maps analysis names to their result sets, in insertion order.
// It belongs to a single run and is not safe for concurrent use.
type ResultStore struct {
	order []string
	sets  map[string]ResultSet
}

// NewResultStore returns an empty store
func NewResultStore() *ResultStore {
	return &ResultStore{sets: make(map[string]ResultSet)}
}

// Put records rs under name. A repeated name overwrites the earlier value
// and keeps its original position.
func (s *ResultStore) Put(name string, rs ResultSet) {
	if _, exists := s.sets[name]; !exists {
		s.order = append(s.order, name)
	}
	s.sets[name] = rs
}

// Get returns the result set stored under name
func (s *ResultStore) Get(name string) (ResultSet, bool) {
	rs, ok := s.sets[name]
	return rs, ok
}

// Names returns stored names in insertion order
func (s *ResultStore) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of stored result sets
func (s *ResultStore) Len() int { return len(s.order) }

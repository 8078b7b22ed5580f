package gossip

// Flooder decides which neighbors must hear about a broadcast value.
type Flooder struct {
	log   *Log
	peers *MemberList
}

func NewFlooder(peers *MemberList) *Flooder {
	return &Flooder{log: NewLog(), peers: peers}
}

// Accept records v. The first time v is seen it returns the neighbors to
// forward it to and true; for a value already in the log it returns nil
// and false, so each value is flooded at most once.
func (f *Flooder) Accept(v int64) ([]string, bool) {
	if !f.log.Add(v) {
		return nil, false
	}
	return f.peers.Neighbors(), true
}

// Seen returns every accepted value in first-seen order.
func (f *Flooder) Seen() []int64 {
	return f.log.Values()
}

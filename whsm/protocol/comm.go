package protocol

// DefaultDataLen is the default packet MTU shared by both sides.
const DefaultDataLen = 1280

type CommInitReq struct {
	ClientID uint32
}

type CommInitRes struct {
	ClientID uint32
	ServerID uint32
}

type CommEcho struct {
	Len uint32
}

var (
	CommInitRequest  = Layout[CommInitReq]{Name: "comm-init request"}
	CommInitResponse = Layout[CommInitRes]{Name: "comm-init response"}

	CommEchoRequest = Layout[CommEcho]{Name: "comm-echo request", Fields: []Field[CommEcho]{
		{"data", func(m *CommEcho) int { return int(m.Len) }},
	}}
	CommEchoResponse = Layout[CommEcho]{Name: "comm-echo response", Fields: []Field[CommEcho]{
		{"data", func(m *CommEcho) int { return int(m.Len) }},
	}}
)

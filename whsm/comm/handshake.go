package comm

import (
	"github.com/bigbrett/wolfHSM/whsm/protocol"
)

// Init announces the client id and learns the server id.
func (c *Client) Init() (uint32, error) {
	s := c.Borrow()
	defer c.Release(s)
	buf := s.Bytes()

	req := protocol.CommInitReq{ClientID: uint32(c.clientID)}
	n, err := protocol.CommInitRequest.Marshal(buf, &req)
	if err != nil {
		return 0, err
	}
	if n, err = c.Exchange(protocol.GroupComm, protocol.CommActionInit, buf, n); err != nil {
		return 0, err
	}
	if err := protocol.Err(buf); err != nil {
		return 0, err
	}
	var res protocol.CommInitRes
	if err := protocol.CommInitResponse.Unmarshal(buf[:n], &res); err != nil {
		return 0, err
	}
	c.serverID = res.ServerID
	c.logger.Info("comm init", "client_id", res.ClientID, "server_id", res.ServerID)
	return res.ServerID, nil
}

// Echo round trips data through the module and returns the reply.
func (c *Client) Echo(data []byte) ([]byte, error) {
	s := c.Borrow()
	defer c.Release(s)
	buf := s.Bytes()

	req := protocol.CommEcho{Len: uint32(len(data))}
	n, err := protocol.CommEchoRequest.Marshal(buf, &req, data)
	if err != nil {
		return nil, err
	}
	if n, err = c.Exchange(protocol.GroupComm, protocol.CommActionEcho, buf, n); err != nil {
		return nil, err
	}
	if err := protocol.Err(buf); err != nil {
		return nil, err
	}
	var res protocol.CommEcho
	var out []byte
	if err := protocol.CommEchoResponse.Unmarshal(buf[:n], &res, &out); err != nil {
		return nil, err
	}
	return append([]byte(nil), out...), nil
}

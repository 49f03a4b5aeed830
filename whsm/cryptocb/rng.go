package cryptocb

import "github.com/bigbrett/wolfHSM/whsm/protocol"

// rng fills Out in as many exchanges as the MTU requires.
func (d *dispatcher) rng(a *RngArgs) error {
	maxChunk := d.mtu() - protocol.RngResponse.Size(&protocol.SizeRes{})
	out := a.Out
	for len(out) > 0 {
		chunk := min(len(out), maxChunk)
		req := protocol.RngReq{Sz: uint32(chunk)}
		d.reset()
		n, err := protocol.RngRequest.Marshal(d.buf, &req)
		if err != nil {
			return err
		}
		if n, err = d.exchange(protocol.AlgoRng, n); err != nil {
			return err
		}
		var res protocol.SizeRes
		var got []byte
		if err := protocol.RngResponse.Unmarshal(d.buf[:n], &res, &got); err != nil {
			return err
		}
		if len(got) != chunk {
			return ErrBadLength
		}
		out = out[copy(out, got):]
	}
	return nil
}

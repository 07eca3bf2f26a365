package server

import (
	"context"
	"encoding/json"
	"fmt"

	"stegochat/internal/model"
)

// The relay buffers envelopes for offline recipients in redis. Order matters:
// the recipient's client decodes messages against conversation position, so
// the cache is a FIFO list per recipient.

func (s *RelayServer) GetEnvelopesFromCache(ctx context.Context, to string) ([]*model.Envelope, error) {
	key := fmt.Sprintf("to: %s", to)
	vals, err := s.redisService.LRange(ctx, key)
	if err != nil {
		return nil, err
	}
	s.redisService.Del(ctx, key)

	var res []*model.Envelope
	for _, v := range vals {
		var e model.Envelope
		err := json.Unmarshal([]byte(v), &e)
		if err != nil {
			return nil, err
		}

		res = append(res, &e)
	}

	return res, nil
}

func (s *RelayServer) PutEnvelopesToCache(ctx context.Context, to string, envelopes []*model.Envelope) error {
	key := fmt.Sprintf("to: %s", to)
	var vals []interface{}
	for _, e := range envelopes {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		vals = append(vals, data)
	}

	return s.redisService.RPush(ctx, key, vals...)
}

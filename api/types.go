package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ruteri/secret-sharing-service/interfaces"
)

// ShareDTO is the wire form of a share.
//
// Value is transmitted as decimal text so that no precision is lost in JSON, and
// Signature as standard base64. On input, Value may also be a bare JSON number and
// may be named "share" instead of "value".
type ShareDTO struct {
	Index     int    `json:"index"`
	Value     string `json:"value"`
	Signature string `json:"signature"`
}

// UnmarshalJSON accepts the value as a decimal string or bare number, under either
// "value" or the legacy "share" key. Index and signature are required.
func (d *ShareDTO) UnmarshalJSON(data []byte) error {
	var raw struct {
		Index     *int            `json:"index"`
		Value     json.RawMessage `json:"value"`
		Share     json.RawMessage `json:"share"`
		Signature *string         `json:"signature"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.Index == nil {
		return errors.New("share is missing index")
	}
	if raw.Signature == nil {
		return errors.New("share is missing signature")
	}

	value := raw.Value
	if len(value) == 0 {
		value = raw.Share
	}
	if len(value) == 0 {
		return errors.New("share is missing value")
	}

	var text string
	if bytes.HasPrefix(value, []byte(`"`)) {
		if err := json.Unmarshal(value, &text); err != nil {
			return err
		}
	} else {
		text = string(value)
	}

	d.Index = *raw.Index
	d.Value = text
	d.Signature = *raw.Signature
	return nil
}

// ToShare decodes the DTO. Malformed or negative values and indices are rejected
// with interfaces.ErrInvalidParameter.
func (d ShareDTO) ToShare() (interfaces.Share, error) {
	if d.Index < 0 {
		return interfaces.Share{}, fmt.Errorf("%w: negative share index %d", interfaces.ErrInvalidParameter, d.Index)
	}

	value, ok := new(big.Int).SetString(d.Value, 10)
	if !ok {
		return interfaces.Share{}, fmt.Errorf("%w: share %d value is not a decimal integer", interfaces.ErrInvalidParameter, d.Index)
	}
	if value.Sign() < 0 {
		return interfaces.Share{}, fmt.Errorf("%w: share %d value is negative", interfaces.ErrInvalidParameter, d.Index)
	}

	signature, err := base64.StdEncoding.DecodeString(d.Signature)
	if err != nil {
		return interfaces.Share{}, fmt.Errorf("%w: share %d signature is not base64: %v", interfaces.ErrInvalidParameter, d.Index, err)
	}

	return interfaces.Share{Index: d.Index, Value: value, Signature: signature}, nil
}

// NewShareDTO encodes a share for the wire.
func NewShareDTO(share interfaces.Share) ShareDTO {
	return ShareDTO{
		Index:     share.Index,
		Value:     share.Value.String(),
		Signature: base64.StdEncoding.EncodeToString(share.Signature),
	}
}

// NewShareDTOs converts shares in order, as returned by the split endpoint.
func NewShareDTOs(shares []interfaces.Share) []ShareDTO {
	dtos := make([]ShareDTO, len(shares))
	for i, share := range shares {
		dtos[i] = NewShareDTO(share)
	}
	return dtos
}

// SharesFromDTOs decodes every DTO, stopping at the first malformed one.
func SharesFromDTOs(dtos []ShareDTO) ([]interfaces.Share, error) {
	shares := make([]interfaces.Share, len(dtos))
	for i, dto := range dtos {
		share, err := dto.ToShare()
		if err != nil {
			return nil, err
		}
		shares[i] = share
	}
	return shares, nil
}

// SplitRequest is the body of POST /api/v1/splitSecret.
type SplitRequest struct {
	K      int    `json:"k"`
	N      int    `json:"n"`
	Secret string `json:"secret"`
}

// StoreResponse is returned after persisting a share set.
type StoreResponse struct {
	// ID is the hex content ID of the share set manifest.
	ID string `json:"id"`
}

// ErrorResponse is the JSON error body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	// Index names the offending share of an integrity violation.
	Index *int `json:"index,omitempty"`
}

// SignatureAlgorithmHeader carries the algorithm name next to the public key.
const SignatureAlgorithmHeader = "X-Signature-Algorithm"

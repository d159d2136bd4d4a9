package api

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ruteri/secret-sharing-service/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareDTOUnmarshal(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    ShareDTO
		wantErr bool
	}{
		{
			name:  "string value",
			input: `{"index":1,"value":"123456789012345678901234567890","signature":"c2ln"}`,
			want:  ShareDTO{Index: 1, Value: "123456789012345678901234567890", Signature: "c2ln"},
		},
		{
			name:  "numeric value keeps every digit",
			input: `{"index":2,"value":123456789012345678901234567890,"signature":"c2ln"}`,
			want:  ShareDTO{Index: 2, Value: "123456789012345678901234567890", Signature: "c2ln"},
		},
		{
			name:  "legacy share key",
			input: `{"index":0,"share":"42","signature":""}`,
			want:  ShareDTO{Index: 0, Value: "42", Signature: ""},
		},
		{name: "missing index", input: `{"value":"1","signature":"c2ln"}`, wantErr: true},
		{name: "missing signature", input: `{"index":1,"value":"1"}`, wantErr: true},
		{name: "missing value", input: `{"index":1,"signature":"c2ln"}`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var dto ShareDTO
			err := json.Unmarshal([]byte(tc.input), &dto)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, dto)
		})
	}
}

func TestShareDTOToShare(t *testing.T) {
	value, ok := new(big.Int).SetString("98765432109876543210", 10)
	require.True(t, ok)
	share := interfaces.Share{Index: 3, Value: value, Signature: []byte{0xde, 0xad}}

	dto := NewShareDTO(share)
	assert.Equal(t, "98765432109876543210", dto.Value)
	assert.Equal(t, "3q0=", dto.Signature)

	decoded, err := dto.ToShare()
	require.NoError(t, err)
	assert.Equal(t, share.Index, decoded.Index)
	assert.Equal(t, 0, share.Value.Cmp(decoded.Value))
	assert.Equal(t, share.Signature, decoded.Signature)

	for name, bad := range map[string]ShareDTO{
		"negative index": {Index: -1, Value: "1", Signature: ""},
		"negative value": {Index: 1, Value: "-1", Signature: ""},
		"hex value":      {Index: 1, Value: "0x10", Signature: ""},
		"bad signature":  {Index: 1, Value: "1", Signature: "!!"},
	} {
		_, err := bad.ToShare()
		assert.ErrorIs(t, err, interfaces.ErrInvalidParameter, name)
	}

	_, err = SharesFromDTOs([]ShareDTO{dto, {Index: 1, Value: "x"}})
	require.ErrorIs(t, err, interfaces.ErrInvalidParameter)
}

func TestNewShareDTOsKeepsOrder(t *testing.T) {
	shares := []interfaces.Share{
		{Index: 2, Value: big.NewInt(20), Signature: []byte{2}},
		{Index: 0, Value: big.NewInt(5), Signature: []byte{0}},
	}

	dtos := NewShareDTOs(shares)
	require.Len(t, dtos, 2)
	assert.Equal(t, ShareDTO{Index: 2, Value: "20", Signature: "Ag=="}, dtos[0])
	assert.Equal(t, ShareDTO{Index: 0, Value: "5", Signature: "AA=="}, dtos[1])
	assert.Empty(t, NewShareDTOs(nil))
}

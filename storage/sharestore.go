package storage

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/ruteri/secret-sharing-service/interfaces"
)

const manifestVersion = 1

// shareRecord is the CBOR document stored for one share.
type shareRecord struct {
	Index     int    `cbor:"1,keyasint"`
	Value     []byte `cbor:"2,keyasint"`
	Signature []byte `cbor:"3,keyasint"`
}

type manifestEntry struct {
	Index int    `cbor:"1,keyasint"`
	ID    []byte `cbor:"2,keyasint"`
}

// shareSetManifest links the shares of one split. Its content ID is the share set ID.
type shareSetManifest struct {
	Version int             `cbor:"1,keyasint"`
	Shares  []manifestEntry `cbor:"2,keyasint"`
}

// ShareStore persists share sets on a content-addressed backend. Encoding is
// deterministic, so storing the same set twice yields the same ID.
//
// Shares are stored as received. Their signatures are checked when the set is
// recovered, which keeps the store usable for shares signed by another key.
type ShareStore struct {
	backend interfaces.StorageBackend
	enc     cbor.EncMode
	log     *slog.Logger
}

var _ interfaces.ShareRepository = (*ShareStore)(nil)

func NewShareStore(backend interfaces.StorageBackend, log *slog.Logger) (*ShareStore, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return &ShareStore{backend: backend, enc: enc, log: log}, nil
}

// SaveShares stores every share and then the manifest, returning the manifest ID.
// Indices must be unique and non-negative.
func (s *ShareStore) SaveShares(ctx context.Context, shares []interfaces.Share) (interfaces.ContentID, error) {
	if len(shares) == 0 {
		return interfaces.ContentID{}, interfaces.ErrEmptyShareSet
	}

	sorted := make([]interfaces.Share, len(shares))
	copy(sorted, shares)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	manifest := shareSetManifest{Version: manifestVersion, Shares: make([]manifestEntry, 0, len(sorted))}

	for i, share := range sorted {
		if share.Index < 0 || share.Value == nil || share.Value.Sign() < 0 {
			return interfaces.ContentID{}, fmt.Errorf("%w: malformed share at index %d", interfaces.ErrInvalidParameter, share.Index)
		}
		if i > 0 && sorted[i-1].Index == share.Index {
			return interfaces.ContentID{}, fmt.Errorf("%w: repeated share index %d", interfaces.ErrInvalidParameter, share.Index)
		}

		encoded, err := s.enc.Marshal(shareRecord{
			Index:     share.Index,
			Value:     share.Value.Bytes(),
			Signature: share.Signature,
		})
		if err != nil {
			return interfaces.ContentID{}, fmt.Errorf("failed to encode share %d: %w", share.Index, err)
		}

		id, err := s.backend.Store(ctx, encoded, interfaces.ShareType)
		if err != nil {
			return interfaces.ContentID{}, fmt.Errorf("failed to store share %d: %w", share.Index, err)
		}

		manifest.Shares = append(manifest.Shares, manifestEntry{Index: share.Index, ID: id[:]})
	}

	encoded, err := s.enc.Marshal(manifest)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to encode manifest: %w", err)
	}

	setID, err := s.backend.Store(ctx, encoded, interfaces.ShareSetType)
	if err != nil {
		return interfaces.ContentID{}, fmt.Errorf("failed to store manifest: %w", err)
	}

	s.log.Debug("Stored share set", slog.String("id", setID.String()), slog.Int("shares", len(sorted)))
	return setID, nil
}

// FindShares returns every share of a set ordered by index.
func (s *ShareStore) FindShares(ctx context.Context, setID interfaces.ContentID) ([]interfaces.Share, error) {
	manifest, err := s.fetchManifest(ctx, setID)
	if err != nil {
		return nil, err
	}

	shares := make([]interfaces.Share, 0, len(manifest.Shares))
	for _, entry := range manifest.Shares {
		share, err := s.fetchShare(ctx, entry)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	return shares, nil
}

// FindShareByIndex returns one share of a set, or ErrContentNotFound when the set
// has no share with that index.
func (s *ShareStore) FindShareByIndex(ctx context.Context, setID interfaces.ContentID, index int) (interfaces.Share, error) {
	manifest, err := s.fetchManifest(ctx, setID)
	if err != nil {
		return interfaces.Share{}, err
	}

	for _, entry := range manifest.Shares {
		if entry.Index == index {
			return s.fetchShare(ctx, entry)
		}
	}
	return interfaces.Share{}, fmt.Errorf("%w: share set %s has no share %d", interfaces.ErrContentNotFound, setID, index)
}

// fetchVerified fetches content and checks it hashes to its ID.
func (s *ShareStore) fetchVerified(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	data, err := s.backend.Fetch(ctx, id, contentType)
	if err != nil {
		return nil, err
	}
	if !interfaces.ComputeID(data).Equal(id) {
		return nil, fmt.Errorf("stored %s %s does not match its content ID", contentType, id)
	}
	return data, nil
}

func (s *ShareStore) fetchManifest(ctx context.Context, setID interfaces.ContentID) (*shareSetManifest, error) {
	data, err := s.fetchVerified(ctx, setID, interfaces.ShareSetType)
	if err != nil {
		return nil, err
	}

	var manifest shareSetManifest
	if err := cbor.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", setID, err)
	}
	if manifest.Version != manifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", manifest.Version)
	}
	return &manifest, nil
}

func (s *ShareStore) fetchShare(ctx context.Context, entry manifestEntry) (interfaces.Share, error) {
	if len(entry.ID) != len(interfaces.ContentID{}) {
		return interfaces.Share{}, fmt.Errorf("manifest entry %d has a malformed content ID", entry.Index)
	}
	id := interfaces.ContentID(entry.ID)

	data, err := s.fetchVerified(ctx, id, interfaces.ShareType)
	if err != nil {
		return interfaces.Share{}, fmt.Errorf("share %d: %w", entry.Index, err)
	}

	var record shareRecord
	if err := cbor.Unmarshal(data, &record); err != nil {
		return interfaces.Share{}, fmt.Errorf("failed to decode share %d: %w", entry.Index, err)
	}
	if record.Index != entry.Index {
		return interfaces.Share{}, fmt.Errorf("share %s has index %d, manifest says %d", id, record.Index, entry.Index)
	}

	return interfaces.Share{
		Index:     record.Index,
		Value:     new(big.Int).SetBytes(record.Value),
		Signature: record.Signature,
	}, nil
}

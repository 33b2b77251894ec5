package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Seklfreak/starboard/models"
)

// MemoryStore keeps everything in process memory. Used by tests and the
// "memory" storage driver; one mutex makes every call atomic.
type MemoryStore struct {
	sync.Mutex

	votes   map[string]map[string]time.Time
	mirrors map[string]models.MirrorRecord
	configs map[string]models.StarboardConfig
	seq     int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		votes:   make(map[string]map[string]time.Time),
		mirrors: make(map[string]models.MirrorRecord),
		configs: make(map[string]models.StarboardConfig),
	}
}

func (m *MemoryStore) AddVote(ctx context.Context, messageID, voterID string) (bool, error) {
	m.Lock()
	defer m.Unlock()

	voters, ok := m.votes[messageID]
	if !ok {
		voters = make(map[string]time.Time)
		m.votes[messageID] = voters
	}
	if _, ok := voters[voterID]; ok {
		return false, nil
	}
	voters[voterID] = time.Now()
	return true, nil
}

func (m *MemoryStore) RemoveVote(ctx context.Context, messageID, voterID string) (bool, error) {
	m.Lock()
	defer m.Unlock()

	voters, ok := m.votes[messageID]
	if !ok {
		return false, nil
	}
	if _, ok := voters[voterID]; !ok {
		return false, nil
	}
	delete(voters, voterID)
	if len(voters) == 0 {
		delete(m.votes, messageID)
	}
	return true, nil
}

func (m *MemoryStore) CountVotes(ctx context.Context, messageID string) (int, error) {
	m.Lock()
	defer m.Unlock()
	return len(m.votes[messageID]), nil
}

func (m *MemoryStore) HasVoted(ctx context.Context, messageID, voterID string) (bool, error) {
	m.Lock()
	defer m.Unlock()
	_, ok := m.votes[messageID][voterID]
	return ok, nil
}

func (m *MemoryStore) ClearVotes(ctx context.Context, messageID string) (int, error) {
	m.Lock()
	defer m.Unlock()
	n := len(m.votes[messageID])
	delete(m.votes, messageID)
	return n, nil
}

func (m *MemoryStore) Voters(ctx context.Context, messageID string) ([]string, error) {
	m.Lock()
	defer m.Unlock()

	voters := m.votes[messageID]
	ids := make([]string, 0, len(voters))
	for id := range voters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if voters[ids[i]].Equal(voters[ids[j]]) {
			return ids[i] < ids[j]
		}
		return voters[ids[i]].Before(voters[ids[j]])
	})
	return ids, nil
}

func (m *MemoryStore) GetMirror(ctx context.Context, originalMessageID string) (*models.MirrorRecord, error) {
	m.Lock()
	defer m.Unlock()

	record, ok := m.mirrors[originalMessageID]
	if !ok {
		return nil, Wrap(ErrNotFound, "get mirror")
	}
	return &record, nil
}

func (m *MemoryStore) CreateMirror(ctx context.Context, record *models.MirrorRecord) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.mirrors[record.OriginalMessageID]; ok {
		return Wrap(ErrDuplicate, "create mirror")
	}
	m.seq++
	record.ID = m.seq
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	m.mirrors[record.OriginalMessageID] = *record
	return nil
}

func (m *MemoryStore) UpdateMirrorCount(ctx context.Context, originalMessageID string, count int) error {
	m.Lock()
	defer m.Unlock()

	record, ok := m.mirrors[originalMessageID]
	if !ok {
		return Wrap(ErrNotFound, "update mirror count")
	}
	record.StarCount = count
	m.mirrors[originalMessageID] = record
	return nil
}

func (m *MemoryStore) DeleteMirror(ctx context.Context, originalMessageID string) (bool, error) {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.mirrors[originalMessageID]; !ok {
		return false, nil
	}
	delete(m.mirrors, originalMessageID)
	return true, nil
}

func (m *MemoryStore) TopMirrors(ctx context.Context, guildID string, limit int) ([]models.MirrorRecord, error) {
	m.Lock()
	defer m.Unlock()

	records := make([]models.MirrorRecord, 0)
	for _, record := range m.mirrors {
		if record.GuildID == guildID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].StarCount == records[j].StarCount {
			return records[i].ID < records[j].ID
		}
		return records[i].StarCount > records[j].StarCount
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *MemoryStore) GetConfig(ctx context.Context, guildID string) (*models.StarboardConfig, error) {
	m.Lock()
	defer m.Unlock()

	config, ok := m.configs[guildID]
	if !ok {
		return nil, Wrap(ErrNotFound, "get config")
	}
	return &config, nil
}

func (m *MemoryStore) SetConfig(ctx context.Context, config models.StarboardConfig) error {
	if err := config.Validate(); err != nil {
		return Wrap(err, "set config")
	}

	m.Lock()
	defer m.Unlock()
	m.configs[config.GuildID] = config
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

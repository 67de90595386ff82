// Package memory реализует репозитории в памяти процесса.
// Используется при STORAGE_DRIVER=memory и в тестах сервисов.
package memory

import (
	"PinguinTube/models"
	"sync"
)

const dayKeyLayout = "2006-01-02"

// Store общее хранилище для всех репозиториев. Команды и экранное время
// шардированы по ребёнку: операции над разными детьми не делят блокировок.
type Store struct {
	shardsMu sync.Mutex
	shards   map[uint]*childShard

	// commandID -> childID
	commandIndex sync.Map

	sessionsMu sync.Mutex
	sessions   map[string]*models.DeviceSession

	profilesMu   sync.RWMutex
	children     map[uint]models.Child
	parents      map[string]models.Parent
	nextChildID  uint
	nextParentID uint
}

type childShard struct {
	mu       sync.Mutex
	commands []*models.Command
	records  map[string]*models.ScreenTimeRecord
}

func NewStore() *Store {
	return &Store{
		shards:   make(map[uint]*childShard),
		sessions: make(map[string]*models.DeviceSession),
		children: make(map[uint]models.Child),
		parents:  make(map[string]models.Parent),
	}
}

func (s *Store) shard(childID uint) *childShard {
	s.shardsMu.Lock()
	defer s.shardsMu.Unlock()
	sh, ok := s.shards[childID]
	if !ok {
		sh = &childShard{records: make(map[string]*models.ScreenTimeRecord)}
		s.shards[childID] = sh
	}
	return sh
}

func (s *Store) Commands() *CommandRepository {
	return &CommandRepository{store: s}
}

func (s *Store) ScreenTime() *ScreenTimeRepository {
	return &ScreenTimeRepository{store: s}
}

func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{store: s}
}

func (s *Store) Children() *ChildRepository {
	return &ChildRepository{store: s}
}

func (s *Store) Parents() *ParentRepository {
	return &ParentRepository{store: s}
}

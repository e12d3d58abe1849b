package config

import (
	"encoding/json"
	"sync"

	"github.com/mitchellh/mapstructure"
	"k8s.io/klog/v2"

	"ridengateway/pkg/storage"
)

const recordKey = storage.Config + "/gateway.json"

// Store keeps the configuration record in sync with its backing file.
// A record with an unknown version or undecodable content is replaced
// by the defaults, matching what the firmware does with a corrupt
// non-volatile region.
type Store struct {
	backend storage.Storage

	mu     sync.Mutex
	record Record
}

func NewStore(backend storage.Storage) *Store {
	return &Store{backend: backend, record: defaultRecord()}
}

// Load reads and migrates the persisted record.
func (s *Store) Load() error {
	data, err := s.backend.Get(recordKey)
	if err != nil {
		klog.V(1).InfoS("No usable configuration record, writing defaults", "error", err)
		return s.reset()
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		klog.V(1).InfoS("Configuration record undecodable, writing defaults", "error", err)
		return s.reset()
	}

	record, err := migrate(raw)
	if err != nil {
		klog.V(1).InfoS("Configuration record rejected, writing defaults", "error", err)
		return s.reset()
	}

	s.mu.Lock()
	s.record = record
	s.mu.Unlock()
	// Rewrite so a migrated record lands on disk in the current layout.
	return s.commit()
}

func migrate(raw map[string]interface{}) (Record, error) {
	version, _ := raw["version"].(float64)
	switch int(version) {
	case 1:
		var v1 recordV1
		if err := mapstructure.Decode(raw, &v1); err != nil {
			return Record{}, err
		}
		return Record{
			Version:      CurrentVersion,
			TimezoneName: v1.TimezoneName,
			PortalOnBoot: v1.PortalOnBoot,
			UartBaudRate: DefaultBaudRate,
		}, nil
	case CurrentVersion:
		var record Record
		if err := mapstructure.Decode(raw, &record); err != nil {
			return Record{}, err
		}
		return record, nil
	default:
		return Record{}, ErrUnknownVersion
	}
}

func (s *Store) reset() error {
	s.mu.Lock()
	s.record = defaultRecord()
	s.mu.Unlock()
	return s.commit()
}

func (s *Store) commit() error {
	s.mu.Lock()
	record := s.record
	s.mu.Unlock()
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.backend.Write(recordKey, data)
}

func (s *Store) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

func (s *Store) TimezoneName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.TimezoneName
}

// TZ resolves the stored zone name against the timezone table.
func (s *Store) TZ() string {
	tz, ok := LookupTimezone(s.TimezoneName())
	if !ok {
		tz, _ = LookupTimezone(DefaultTimezoneName)
	}
	return tz
}

func (s *Store) UartBaudRate() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.UartBaudRate
}

// Update persists a new timezone and baudrate.
func (s *Store) Update(timezoneName string, baudRate uint32) error {
	if _, ok := LookupTimezone(timezoneName); !ok {
		return ErrUnknownTimezone
	}
	if !validBaudRate(baudRate) {
		return ErrBaudRate
	}
	s.mu.Lock()
	s.record.TimezoneName = timezoneName
	s.record.UartBaudRate = baudRate
	s.mu.Unlock()
	return s.commit()
}

// Apply replaces the whole record, keeping the version pinned.
func (s *Store) Apply(record Record) error {
	if _, ok := LookupTimezone(record.TimezoneName); !ok {
		return ErrUnknownTimezone
	}
	if !validBaudRate(record.UartBaudRate) {
		return ErrBaudRate
	}
	record.Version = CurrentVersion
	s.mu.Lock()
	s.record = record
	s.mu.Unlock()
	return s.commit()
}

func (s *Store) SetPortalOnBoot(on bool) error {
	s.mu.Lock()
	s.record.PortalOnBoot = on
	s.mu.Unlock()
	return s.commit()
}

// GetAndResetPortalOnBoot reads the flag and, when it was set, clears
// and commits it so the portal runs exactly once.
func (s *Store) GetAndResetPortalOnBoot() (bool, error) {
	s.mu.Lock()
	on := s.record.PortalOnBoot
	s.record.PortalOnBoot = false
	s.mu.Unlock()
	if !on {
		return false, nil
	}
	return true, s.commit()
}

package config

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"ridengateway/pkg/storage"
)

type memoryStorage struct {
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: map[string][]byte{}}
}

func (m *memoryStorage) Get(key string) ([]byte, error) {
	data, ok := m.files[key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (m *memoryStorage) List(key string) ([]*storage.FileInfo, error) {
	return nil, nil
}

func (m *memoryStorage) Write(key string, data []byte) error {
	m.files[key] = data
	return nil
}

func (m *memoryStorage) Delete(key string) error {
	delete(m.files, key)
	return nil
}

func (m *memoryStorage) record(t *testing.T) Record {
	t.Helper()
	var record Record
	if err := json.Unmarshal(m.files[recordKey], &record); err != nil {
		t.Fatalf("stored record undecodable: %v", err)
	}
	return record
}

func TestLoadMissingRecordWritesDefaults(t *testing.T) {
	assert := assert.New(t)
	backend := newMemoryStorage()
	store := NewStore(backend)

	assert.NoError(store.Load())
	assert.Equal(DefaultTimezoneName, store.TimezoneName())
	assert.Equal(uint32(DefaultBaudRate), store.UartBaudRate())

	persisted := backend.record(t)
	assert.Equal(CurrentVersion, persisted.Version)
	assert.Equal(DefaultTimezoneName, persisted.TimezoneName)
}

func TestLoadCorruptRecordWritesDefaults(t *testing.T) {
	assert := assert.New(t)
	backend := newMemoryStorage()
	backend.files[recordKey] = []byte("{not json")
	store := NewStore(backend)

	assert.NoError(store.Load())
	assert.Equal(DefaultTimezoneName, store.TimezoneName())
	assert.Equal(CurrentVersion, backend.record(t).Version)
}

func TestLoadUnknownVersionWritesDefaults(t *testing.T) {
	assert := assert.New(t)
	backend := newMemoryStorage()
	backend.files[recordKey] = []byte(`{"version":9,"timezoneName":"Europe/Berlin"}`)
	store := NewStore(backend)

	assert.NoError(store.Load())
	assert.Equal(DefaultTimezoneName, store.TimezoneName())
}

func TestLoadMigratesVersion1(t *testing.T) {
	assert := assert.New(t)
	backend := newMemoryStorage()
	backend.files[recordKey] = []byte(`{"version":1,"timezoneName":"Europe/Berlin","portalOnBoot":true}`)
	store := NewStore(backend)

	assert.NoError(store.Load())
	record := store.Record()
	assert.Equal(CurrentVersion, record.Version)
	assert.Equal("Europe/Berlin", record.TimezoneName)
	assert.True(record.PortalOnBoot)
	assert.Equal(uint32(DefaultBaudRate), record.UartBaudRate)

	// The migrated layout lands back on disk.
	assert.Equal(CurrentVersion, backend.record(t).Version)
}

func TestLoadKeepsCurrentVersion(t *testing.T) {
	assert := assert.New(t)
	backend := newMemoryStorage()
	backend.files[recordKey] = []byte(`{"version":2,"timezoneName":"Asia/Tokyo","portalOnBoot":false,"uartBaudRate":9600}`)
	store := NewStore(backend)

	assert.NoError(store.Load())
	assert.Equal("Asia/Tokyo", store.TimezoneName())
	assert.Equal(uint32(9600), store.UartBaudRate())
}

func TestUpdateValidates(t *testing.T) {
	assert := assert.New(t)
	store := NewStore(newMemoryStorage())

	assert.Equal(ErrUnknownTimezone, store.Update("Mars/Olympus", 115200))
	assert.Equal(ErrBaudRate, store.Update("Europe/Berlin", 1200))

	assert.NoError(store.Update("Europe/Berlin", 57600))
	assert.Equal("Europe/Berlin", store.TimezoneName())
	assert.Equal(uint32(57600), store.UartBaudRate())
}

func TestApplyPinsVersion(t *testing.T) {
	assert := assert.New(t)
	backend := newMemoryStorage()
	store := NewStore(backend)

	err := store.Apply(Record{
		Version:      99,
		TimezoneName: "Asia/Tokyo",
		UartBaudRate: 19200,
	})
	assert.NoError(err)
	assert.Equal(CurrentVersion, store.Record().Version)
	assert.Equal("Asia/Tokyo", store.TimezoneName())

	err = store.Apply(Record{TimezoneName: "Asia/Tokyo", UartBaudRate: 1234})
	assert.Equal(ErrBaudRate, err)
}

func TestPortalOnBootRunsOnce(t *testing.T) {
	assert := assert.New(t)
	backend := newMemoryStorage()
	store := NewStore(backend)

	on, err := store.GetAndResetPortalOnBoot()
	assert.NoError(err)
	assert.False(on)

	assert.NoError(store.SetPortalOnBoot(true))
	assert.True(backend.record(t).PortalOnBoot)

	on, err = store.GetAndResetPortalOnBoot()
	assert.NoError(err)
	assert.True(on)
	// Cleared in memory and on disk.
	assert.False(store.Record().PortalOnBoot)
	assert.False(backend.record(t).PortalOnBoot)

	on, err = store.GetAndResetPortalOnBoot()
	assert.NoError(err)
	assert.False(on)
}

func TestTZFallsBackToDefault(t *testing.T) {
	assert := assert.New(t)
	store := NewStore(newMemoryStorage())
	store.record.TimezoneName = "Mars/Olympus"

	tz, ok := LookupTimezone(DefaultTimezoneName)
	assert.True(ok)
	assert.Equal(tz, store.TZ())
}

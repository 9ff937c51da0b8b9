package state

import "errors"

// ErrJournalClosed is returned when a journal is used after Commit or Discard.
var ErrJournalClosed = errors.New("state: journal closed")

// Journal stages writes on top of a Manager. Reads observe the staged writes
// first and fall through to the manager. Nothing reaches the database until
// Commit, which applies every staged write in a single storage batch.
//
// Journal is not safe for concurrent use.
type Journal struct {
	base   *Manager
	writes map[string][]byte
	order  []string
	closed bool
}

// Begin opens a journal over the manager.
func (m *Manager) Begin() *Journal {
	return &Journal{base: m, writes: make(map[string][]byte)}
}

func (j *Journal) getRaw(key []byte) ([]byte, error) {
	if j.closed {
		return nil, ErrJournalClosed
	}
	if value, ok := j.writes[string(key)]; ok {
		// nil marks a staged delete.
		return value, nil
	}
	return j.base.getRaw(key)
}

func (j *Journal) stage(key string, value []byte) error {
	if j.closed {
		return ErrJournalClosed
	}
	if _, ok := j.writes[key]; !ok {
		j.order = append(j.order, key)
	}
	j.writes[key] = value
	return nil
}

func (j *Journal) putRaw(key, value []byte) error {
	return j.stage(string(key), append([]byte{}, value...))
}

func (j *Journal) deleteRaw(key []byte) error {
	return j.stage(string(key), nil)
}

// KVPut stages an RLP encoded write.
func (j *Journal) KVPut(key []byte, value interface{}) error {
	return kvPut(j, key, value)
}

// KVGet reads through the journal.
func (j *Journal) KVGet(key []byte, out interface{}) (bool, error) {
	return kvGet(j, key, out)
}

// KVDelete stages a delete.
func (j *Journal) KVDelete(key []byte) error {
	return kvDelete(j, key)
}

// KVAppend stages an append to a byte slice list.
func (j *Journal) KVAppend(key []byte, value []byte) error {
	return kvAppend(j, key, value)
}

// KVGetList reads a list through the journal.
func (j *Journal) KVGetList(key []byte, out interface{}) error {
	return kvGetList(j, key, out)
}

// Dirty reports the number of distinct keys touched by the journal.
func (j *Journal) Dirty() int {
	return len(j.order)
}

// Commit applies the staged writes atomically and closes the journal.
func (j *Journal) Commit() error {
	if j.closed {
		return ErrJournalClosed
	}
	j.closed = true
	if len(j.order) == 0 {
		return nil
	}
	batch := j.base.db.NewBatch()
	for _, key := range j.order {
		value := j.writes[key]
		if value == nil {
			batch.Delete([]byte(key))
			continue
		}
		batch.Put([]byte(key), value)
	}
	j.writes = nil
	j.order = nil
	return batch.Write()
}

// Discard drops every staged write. It is safe to call more than once and
// after Commit.
func (j *Journal) Discard() {
	j.closed = true
	j.writes = nil
	j.order = nil
}

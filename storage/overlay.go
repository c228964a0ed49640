package storage

// Overlay stages writes on top of a Database so a whole engine operation can
// be committed in one step or discarded entirely. Staged writes shadow the
// underlying store for reads issued through the overlay.
type Overlay struct {
	db     Database
	writes map[string][]byte
}

// NewOverlay returns an empty overlay over db.
func NewOverlay(db Database) *Overlay {
	return &Overlay{
		db:     db,
		writes: make(map[string][]byte),
	}
}

// Put stages a write. Nothing reaches the underlying store until Commit.
func (o *Overlay) Put(key []byte, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	o.writes[string(key)] = buf
	return nil
}

// Get returns a staged value if present, otherwise reads through.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	if value, ok := o.writes[string(key)]; ok {
		return value, nil
	}
	return o.db.Get(key)
}

// PutBatch stages every entry. Nothing reaches the underlying store until
// Commit.
func (o *Overlay) PutBatch(entries map[string][]byte) error {
	for key, value := range entries {
		buf := make([]byte, len(value))
		copy(buf, value)
		o.writes[key] = buf
	}
	return nil
}

// Close satisfies the Database interface; the underlying store stays open.
func (o *Overlay) Close() {}

// Commit flushes the staged writes to the underlying store as one batch and
// clears the overlay. A failed commit leaves the store untouched and keeps
// the staged writes, so a retry applies the full set.
func (o *Overlay) Commit() error {
	if err := o.db.PutBatch(o.writes); err != nil {
		return err
	}
	o.writes = make(map[string][]byte)
	return nil
}

// Discard drops all staged writes.
func (o *Overlay) Discard() {
	o.writes = make(map[string][]byte)
}

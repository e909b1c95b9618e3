package table

// Snapshot is a point-in-time introspection view: a small, allocation-light
// struct safe to serialize and expose over HTTP or to a CLI inspector.
type Snapshot struct {
	TableSize   uint64 `json:"table_size"`
	MaxSize     uint64 `json:"max_size"`
	Occupied    uint64 `json:"occupied"`
	WorkerCount int    `json:"worker_count"`
	Threshold   int    `json:"threshold"`
	MaskMode    bool   `json:"mask_mode"`
}

// Snapshot takes an RLock and reads the table's current shape. Occupied is
// an O(max_size) scan that, like Len, leaves out the reserved indices 0 and
// 1; callers on a hot path should prefer Len sparingly and this method
// rarely.
func (t *Table) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	occupied := t.occupancy.CountSetRange(2, t.maxSize-2)
	t.metrics.SetOccupancy(occupied)
	return Snapshot{
		TableSize:   t.dir.TableSize(),
		MaxSize:     t.maxSize,
		Occupied:    occupied,
		WorkerCount: t.wr.Count(),
		Threshold:   t.cfg.threshold,
		MaskMode:    t.cfg.maskMode,
	}
}

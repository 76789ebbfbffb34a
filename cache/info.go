package cache

// Info reports cache activity. Alive is a level: the number of chunk
// handles across all slices. Read and Written count reanimations and
// serializations since the last latch.
type Info struct {
	Alive   uint64
	Read    uint64
	Written uint64
}

// LatchInfo snapshots the counters and zeros the per-epoch fields.
// Alive is not reset.
func (cc *ChunkCache) LatchInfo() Info {
	cc.infoSpin.Lock()
	defer cc.infoSpin.Unlock()

	latched := cc.info
	cc.info.Read = 0
	cc.info.Written = 0
	return latched
}

func (cc *ChunkCache) bumpRead() {
	cc.infoSpin.Lock()
	cc.info.Read++
	cc.infoSpin.Unlock()
}

func (cc *ChunkCache) bumpWritten() {
	cc.infoSpin.Lock()
	cc.info.Written++
	cc.infoSpin.Unlock()
}

func (cc *ChunkCache) bumpAlive(delta int) {
	cc.infoSpin.Lock()
	if delta > 0 {
		cc.info.Alive += uint64(delta)
	} else {
		cc.info.Alive -= uint64(-delta)
	}
	cc.infoSpin.Unlock()
}

package bufmgr

// findVictim scans the directory for a resident, unpinned page and
// returns the one with the smallest timestamp — the least-recently-used
// candidate. The Manager stamps every page with a distinct timestamp,
// so ties do not arise from its own bookkeeping; if two pages did share
// one, the pick would follow Go's randomized map iteration order.
func findVictim(dir pageDirectory) (*Page, bool) {
	var victim *Page
	for _, p := range dir {
		if !p.isBuffered() || p.pinned {
			continue
		}
		if victim == nil || p.timestamp < victim.timestamp {
			victim = p
		}
	}
	return victim, victim != nil
}

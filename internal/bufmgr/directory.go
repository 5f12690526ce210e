package bufmgr

// pageDirectory is the canonical mapping from page identity to the
// resident Page record. It owns no bytes directly — only the Page
// records, and through them, any bound frames.
type pageDirectory map[Identity]*Page

func newPageDirectory() pageDirectory {
	return make(pageDirectory)
}

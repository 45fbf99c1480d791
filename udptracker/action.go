package udptracker

type action int32

// Actions defined in the UDP tracker protocol.
const (
	actionConnect  action = 0
	actionAnnounce action = 1
	actionScrape   action = 2
	actionError    action = 3
)

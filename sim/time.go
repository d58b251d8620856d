package sim

// VTime is the logical time of the testbed. The emulated devices do not model
// latency, so time advances by one for every flash command that is issued.
type VTime uint64

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTime
}

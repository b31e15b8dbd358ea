package graph

import "time"

// now is indirected so tests can pin time.
var now = time.Now

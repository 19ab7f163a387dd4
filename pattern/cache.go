package pattern

import "sync"

// patternCache caches compiled patterns by template string. Templates come
// from route declarations, so the cache grows to a fixed size and stays there.
var patternCache sync.Map

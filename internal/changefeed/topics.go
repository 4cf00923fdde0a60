package changefeed

import (
	"fmt"

	"github.com/ariefcatur/go-hotel-console/internal/redisx"
)

const TopicDocumentsChanged = "hotel.documents.changed"

// Partition key = collection/id, so every write to one document keeps its order.
func PartitionKey(collection, id string) []byte { return []byte(collection + "/" + id) }

// Channel is the Redis pub/sub channel a collection's changes fan out on.
func Channel(collection string) string { return fmt.Sprintf(redisx.ChannelDocs, collection) }

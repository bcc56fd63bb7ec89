package kafka

import "fmt"

// TopicPrefix is the prefix shared by every catalog topic.
const TopicPrefix = "catalog"

// Topic builds a topic name such as "catalog.product.created".
func Topic(domain, action string) string {
	return fmt.Sprintf("%s.%s.%s", TopicPrefix, domain, action)
}

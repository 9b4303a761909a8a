package stanmsg

import (
	"github.com/huangjunwen/rowpub/msg"
)

func subjectFormat(subjectPrefix string, topic msg.Topic) string {
	return subjectPrefix + "." + topic.Project + "." + topic.Name
}

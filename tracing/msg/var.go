package msgtracing

import (
	ot "github.com/opentracing/opentracing-go"
	otext "github.com/opentracing/opentracing-go/ext"

	"github.com/huangjunwen/rowpub/msg"
)

var (
	// PublisherComponentTag is added to each publisher span.
	PublisherComponentTag = ot.Tag{
		Key:   string(otext.Component),
		Value: "rowpub.publisher",
	}
	// AsyncPublisherComponentTag is added to each async publisher span.
	AsyncPublisherComponentTag = ot.Tag{
		Key:   string(otext.Component),
		Value: "rowpub.async.publisher",
	}
)

var (
	// PublisherOpName is used to generate operation name of a msg publish span.
	PublisherOpName = func(topic msg.Topic) string {
		return "Msg Publisher " + topic.String()
	}
	// AsyncPublisherOpName is used to generate operation name of a async msg publish span.
	AsyncPublisherOpName = func(topic msg.Topic) string {
		return "Msg AsyncPublisher " + topic.String()
	}
)

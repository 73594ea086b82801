package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/attachvault/pkg/configs"
)

// init 注册进程内 GoChannel 工厂. 无外部依赖，是开发与测试的默认实现.
func init() {
	RegisterFactory(configs.MQTypeGoChannel, gochannelFactory)
}

// gochannelFactory 创建进程内 Publisher & Subscriber，两者共享同一实例.
func gochannelFactory(
	_ context.Context,
	cfg *configs.MQConfig,
	logger watermill.LoggerAdapter) (
	message.Publisher, message.Subscriber, error) {
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(cfg.BufferSize),
	}, logger)

	return ps, ps, nil
}

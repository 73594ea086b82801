// Package main 启动应用程序
package main

import "github.com/yeisme/attachvault/pkg/cmd"

//	@title			attachvault API
//	@version		1.0
//	@description	attachvault 是一个可插拔的附件存储服务，元数据统一存放在关系库，载荷字节按部署配置写入文件系统、数据库 blob 或 S3 兼容对象存储。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}

package main

import (
	"github.com/spf13/viper"

	"agrolink/cmd/cli"
)

// 直接启动服务端，不走 CLI 子命令（容器镜像入口）
func main() {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()

	cli.RunServer()
}

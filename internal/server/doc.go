/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动与基于 context 的优雅关闭。

# 核心类型

  - Manager：封装 net/http.Server 与 net.Listener，提供 Start/Run/Shutdown，
    viralshorts serve 为 API 与 /metrics 各创建一个实例。
  - Config：监听地址、读写超时、空闲超时、最大请求头与关闭超时；
    ForPort 基于 config.ServerConfig 的端口与超时生成。

# 主要能力

  - Run 阻塞直到 ctx 取消或服务异常退出，调用方通常配合 signal.NotifyContext 使用。
  - Shutdown 幂等；关闭后再次 Start 返回 ErrClosed。
  - Addr 在启动后返回实际监听地址（便于 :0 随机端口测试）。
*/
package server

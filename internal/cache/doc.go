/*
包 cache 提供基于 Redis 的缓存管理能力。

# 概述

本包封装 go-redis 客户端，为 LLM 响应缓存、题材去重和每日上传计数
提供统一的读写接口。所有键自动加上命名空间前缀（默认 viralshorts）。

# 核心类型

  - Manager：缓存管理器，提供 Get/Set/GetJSON/SetJSON/Delete，
    以及 MarkOnce（SETNX 去重）和 Incr（带过期的计数器）。
  - Config：地址、密码、命名空间、默认 TTL 与健康检查间隔。

# 错误语义

未命中返回 ErrCacheMiss，可用 IsCacheMiss 判断；关闭后的调用返回 ErrClosed。
*/
package cache

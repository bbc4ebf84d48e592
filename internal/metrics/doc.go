// 版权所有 2026 ViralShorts Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力。

# 概述

Collector 统一注册并记录 HTTP、LLM、缓存、素材下载、渲染、上传、
流水线作业与数据库连接池指标。指标注册到调用方传入的 Registerer，
测试中可使用独立的 prometheus.NewRegistry()。

nil *Collector 上的所有 Record* 方法都是空操作。
*/
package metrics

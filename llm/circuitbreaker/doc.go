/*
包 circuitbreaker 为每个 LLM Provider 提供 closed/open/half-open 三态熔断器。

连续失败达到 Threshold 后熔断打开，ResetTimeout 之后放行半开探测；
探测成功恢复关闭，失败重新打开。IsFailure 用于排除客户端错误
（如参数错误、鉴权失败），调用方取消的 context 不计入失败。
*/
package circuitbreaker

/*
包 speech 提供配音合成 (TTS) 接入层。

# 核心接口

  - Synthesizer：把文本合成为磁盘上的音频文件
  - Request / Result：标准化请求与结果

# 主要能力

  - ElevenLabsProvider：ElevenLabs text-to-speech，默认 eleven_multilingual_v2
  - OpenAITTSProvider：OpenAI /v1/audio/speech，默认 tts-1 / onyx
  - Chain：按 speech.order 依次回退，未配置凭证的 Provider 自动跳过

音频先写入同目录临时文件再 rename，调用方不会读到半截文件。
*/
package speech

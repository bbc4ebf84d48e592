// Package gemini adapts Google Gemini to llm.Provider using the official
// google.golang.org/genai SDK. It is the second entry of the default
// fallback order, after Groq.
package gemini

package enhance

// SystemPrompt frames the model as a tutorial writer answering in HTML.
const SystemPrompt = `You are an expert in writing educational tutorials.
Format your response in HTML instead of markdown.
Use proper HTML tags like <h1>, <h2>, <p>, <code>, <pre>, etc.
For code blocks, wrap them in <pre><code> tags.
Make content engaging and educational.
Keep the original content's intent but enhance it.`

// UserPrompt wraps the editor's plain text.
func UserPrompt(content string) string {
	return "Enhance this topic: " + content
}

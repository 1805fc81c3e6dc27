package studio

const (
	storySystemPromptEnglish = "You are a professional story writer. Create engaging and interesting short stories with good plot development."
	storyUserPromptEnglish   = `Write a short story about "%s" in around 200 words`
	storySystemPromptChinese = "你是一位专业的故事作家。创作引人入胜且有趣的短篇故事，具有良好的情节发展。请用中文回复。"
	storyUserPromptChinese   = `请写一个关于"%s"的短篇故事，大约200字左右`
)

const (
	podcastSystemPromptEnglish = "You are a professional podcast content creator. Create engaging and informative podcast content that is suitable for a conversation between two hosts."
	podcastUserPromptEnglish   = `Create a podcast discussion outline about "%s". The content should be informative and conversational.`
	podcastSystemPromptChinese = "你是一位专业的播客内容创作者。创作引人入胜且信息丰富的播客内容，适合两位主持人之间的对话。请用中文回复。"
	podcastUserPromptChinese   = `请创建一个关于"%s"的播客讨论大纲。内容应该信息丰富且对话性强。`
)

const imagePromptSystemFormat = `You are a professional image prompt engineer. Create concise but detailed image prompts that maintain consistency.

Requirements:
1. Keep prompts under 75 words
2. Focus on key visual elements and maintain character/setting consistency
3. Include artistic style and mood
4. Avoid NSFW content
5. Use natural, descriptive language
6. ALWAYS output in English only, regardless of input language
7. If input text is in Chinese or other languages, translate the key visual elements to English first

Story context:
%s`

const imagePromptUserFormat = `Create an English image generation prompt for this scene while maintaining consistency with any provided context. If the input text is not in English, translate the visual elements first: "%s"`

const noContext = "No context provided"

const (
	storyContextSystemPrompt = "Extract key story elements (characters, settings, themes) from the story sections. Keep it concise."
	storyContextUserFormat   = "Analyze these story sections and extract key elements:\n%s"
)

const batchPromptSystemFormat = `You are a professional image prompt engineer. Create concise but detailed image prompts that maintain consistency across a story.

Requirements:
1. Keep prompts under 75 words
2. Focus on key visual elements and maintain character/setting consistency
3. Include artistic style and mood
4. Avoid NSFW content
5. Use natural, descriptive language
6. Output in English only

Story context:
%s`

const batchPromptUserFormat = `Create an image generation prompt for this scene while maintaining consistency with the story context: "%s"`

const translatePodcastSystemPrompt = `Translate the podcast script to Chinese. Keep the format:
1. Keep the Host A/B labels
2. Translate naturally and maintain the conversation style
3. Return in this format:
[Host A]
Chinese translation

[Host B]
Chinese translation
`

const translatePodcastUserFormat = "Translate this podcast script to Chinese:\n%s"

const translateStorySystemPrompt = `Translate the story script to Chinese. Keep the format:
1. Keep the [Narration] and [Dialogue] labels
2. Translate naturally and maintain the story flow
3. Return in this format:
[Narration]
Chinese translation

[Dialogue]
Character Name:
Chinese translation
`

const translateStoryUserFormat = "Translate this story script to Chinese:\n%s"

const probePrompt = "Hello, this is a test."

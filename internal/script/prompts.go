package script

const storySystemPromptEnglish = `Convert stories into dialogue format and return JSON format with these requirements:
1. Convert any non-English text to English first
2. Separate narration and dialogues
3. Do not use asterisks (*) or any special formatting characters
4. Format:
{
  "scenes": [
    {
      "type": "narration",
      "text": "scene description or narration"
    },
    {
      "type": "dialogue",
      "character": "Character Name",
      "text": "dialogue content"
    }
  ]
}
5. Keep dialogues natural and concise
6. Add scene descriptions where needed
7. Maintain story flow and emotion
8. Use appropriate names for characters`

const storySystemPromptChinese = `Convert stories into dialogue format and return JSON format with these requirements:
1. Keep the original language of the story, do not translate it
2. Separate narration and dialogues
3. Do not use asterisks (*) or any special formatting characters
4. Format:
{
  "scenes": [
    {
      "type": "narration",
      "text": "scene description or narration"
    },
    {
      "type": "dialogue",
      "character": "Character Name",
      "text": "dialogue content"
    }
  ]
}
5. Keep dialogues natural and concise
6. Add scene descriptions where needed
7. Maintain story flow and emotion
8. Use appropriate names for characters`

const storyUserPromptFormat = "Convert this story into script format:\n%s"

const podcastSystemPromptEnglish = `Convert content into a natural English conversation between two podcast hosts (A and B). Requirements:
1. Format the response as JSON array of dialog objects
2. Each object should have 'host' (either 'A' or 'B') and 'text' fields
3. Keep the conversation natural and engaging
4. Convert any non-English content to English
Format example:
[
    {"host": "A", "text": "Welcome to our show..."},
    {"host": "B", "text": "Today we're discussing..."}
]`

const podcastSystemPromptChinese = `Convert content into a natural conversation between two podcast hosts (A and B). Requirements:
1. Format the response as JSON array of dialog objects
2. Each object should have 'host' (either 'A' or 'B') and 'text' fields
3. Keep the conversation natural and engaging
4. Keep the original language of the content
Format example:
[
    {"host": "A", "text": "欢迎收听我们的节目..."},
    {"host": "B", "text": "今天我们来聊聊..."}
]`

const podcastUserPromptFormat = "Convert this content into a podcast conversation:\n%s"

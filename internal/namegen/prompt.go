package namegen

import (
	"strconv"
	"strings"

	"qiming/entity"
)

// defaultPromptTemplate is the built-in master-namer prompt. A custom
// template file can replace it via the ai.prompt_file config option; the
// placeholders are the contract either way.
const defaultPromptTemplate = `角色设定：你是一位拥有20年经验的起名大师，精通周易五行、古诗词、现代美学、心理学（包括MBTI性格理论）。
任务：根据用户提供的宝宝信息，生成{nameCount}个精选名字。要求：名字风格多样化，字数包含2个字和3个字的名字。
输入信息：- 姓氏：{surname}
- 性别：{gender}
- 出生日期：{birthDate}
- 出生时间：{birthTime}
- 特殊要求：{requirements}

起名标准：1. 寓意美好：名字要有积极的寓意和内涵
2. 音律和谐：声调搭配，朗朗上口，无不良谐音
3. 字形美观：结构匀称，书写流畅
4. 文化底蕴：优先从诗词典故中取材
5. 时代感：既要有传统底蕴，又要符合现代审美
6. 避免生僻：使用GB2312常用字，方便生活
7. 字数多样：{nameCount}个名字中，建议包含2-3个两字名和2-3个三字名
8. 风格多样：包含古典诗词风、现代简约风、国学经典风、文艺清新风、寓意吉祥风等不同风格

输出要求：严格按以下JSON格式输出，不要任何额外文字：

{
  "names": [
    {
      "id": "唯一标识符(uuid格式)",
      "name": "名字（不含姓氏，可以是1-2个字）",
      "full_name": "完整姓名",
      "pinyin": "拼音标注",
      "meaning": "详细寓意解释(100字以内)",
      "cultural_source": "诗词典故出处(如有，没有则写'无')",
      "wuxing_analysis": "五行分析(如提供出生时间)",
      "score": 95,
      "highlight": "最突出的亮点(一句话)",
      "mbti_tendency": "根据名字的寓意和气质，分析可能对应的MBTI性格倾向(如：INFJ-内敛而富有洞察力，适合从事...)，约50字"
    }
  ]
}

注意事项：- 不要输出JSON以外的任何内容
- 确保{nameCount}个名字风格各异，字数混合（2字名和3字名都要有），给用户更多选择
- 评分要客观，90分以上为优质
- 如果用户提供了特殊要求，必须优先满足
- MBTI倾向参考需结合名字的寓意进行合理推测，体现名字赋予的性格气质`

var genderNames = map[string]string{
	"male":    "男孩",
	"female":  "女孩",
	"unknown": "未知",
}

// buildPrompt substitutes the required placeholders and drops the whole input
// line for any optional field the client did not send.
func buildPrompt(template string, params *entity.GenerateParams, nameCount int) string {
	gender, ok := genderNames[params.Gender]
	if !ok {
		gender = params.Gender
	}

	prompt := template
	prompt = strings.ReplaceAll(prompt, "{surname}", params.Surname)
	prompt = strings.ReplaceAll(prompt, "{gender}", gender)
	prompt = strings.ReplaceAll(prompt, "{nameCount}", strconv.Itoa(nameCount))

	prompt = optionalLine(prompt, "- 出生日期：{birthDate}", "{birthDate}", params.BirthDate)
	prompt = optionalLine(prompt, "- 出生时间：{birthTime}", "{birthTime}", params.BirthTime)
	prompt = optionalLine(prompt, "- 特殊要求：{requirements}", "{requirements}", params.Requirements)

	return prompt
}

func optionalLine(prompt, line, placeholder, value string) string {
	if value != "" {
		return strings.ReplaceAll(prompt, placeholder, value)
	}
	prompt = strings.ReplaceAll(prompt, line+"\n", "")
	return strings.ReplaceAll(prompt, line, "")
}

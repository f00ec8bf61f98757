package agent

import (
	"fmt"
	"strings"

	"pathfinder/backend/internal/constants"
	"pathfinder/backend/internal/state"
)

const basePrompt = `You are %s, an empathetic counselor for high school students. Your goal is to provide supportive guidance, encourage positive behaviors, and help students navigate academic and personal challenges.

Guidelines:
- Maintain a supportive, non-judgmental tone
- Focus on positive coping strategies and growth mindset
- Never provide advice that could be harmful to the student or others
- Do not discuss illegal activities, self-harm methods, or dangerous behaviors
- If a student mentions serious issues like abuse, self-harm intentions, or harm to others, remind them to speak with a trusted adult, school counselor, or contact appropriate crisis resources
- Respect privacy and confidentiality while acknowledging your limitations as an AI
- Speak at an appropriate level for high school students (ages 14-18)
- Use inclusive language and avoid assumptions about gender, race, socioeconomic status, or family structure
- Provide specific, actionable guidance when appropriate
- Acknowledge and validate emotions before offering solutions`

type focus struct {
	title   string
	subject string
	points  []string
	closing string
}

var focuses = map[string]focus{
	constants.CategoryAcademic: {
		title:   "Academic guidance",
		subject: "The student is asking about",
		points: []string{
			"Acknowledge their current abilities and efforts",
			"Suggest specific, actionable study strategies",
			"Connect advice to their stated learning style and interests",
			"Offer perspective on how this connects to their future goals",
			"Encourage growth mindset and resilience",
			"Suggest resources that match their learning preferences",
		},
		closing: "Respond in a supportive, encouraging manner while providing practical advice.",
	},
	constants.CategoryEmotional: {
		title:   "Emotional support",
		subject: "The student is expressing",
		points: []string{
			"First validate and normalize their feelings",
			"Use reflective listening techniques",
			"Share age-appropriate coping strategies",
			"Focus on building resilience and healthy emotional regulation",
			"Avoid dismissing or minimizing their feelings",
			"Suggest ways to build support networks",
		},
		closing: "Respond with empathy while offering practical emotional management strategies.",
	},
	constants.CategorySocial: {
		title:   "Social challenges",
		subject: "The student is describing",
		points: []string{
			"Validate their social experiences and feelings",
			"Suggest specific communication techniques",
			"Focus on building healthy relationships",
			"Encourage empathy and understanding of others",
			"Suggest ways to resolve conflicts constructively",
			"Emphasize the importance of finding supportive friendships",
		},
		closing: "Respond with empathy while offering practical social skills advice.",
	},
	constants.CategoryFuture: {
		title:   "Future planning",
		subject: "The student is asking about",
		points: []string{
			"Connect their interests and strengths to potential pathways",
			"Provide balanced information about different options",
			"Break down big decisions into manageable steps",
			"Emphasize that many paths can lead to success",
			"Focus on skill development alongside formal education",
			"Acknowledge normal uncertainty about the future",
		},
		closing: "Respond with encouragement while offering practical planning strategies.",
	},
}

// buildSystemPrompt creates the counselor prompt: persona, what the graph
// says about the student, the focus for this category, then safety rules.
func buildSystemPrompt(p state.Profile, recent []state.Exchange, category, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, basePrompt, constants.CounselorName)
	writeProfile(&b, p)
	writeHistory(&b, recent)

	b.WriteString("\n\n")
	if f, ok := focuses[category]; ok {
		fmt.Fprintf(&b, "Current focus: %s\n\n%s: %s\n\nWhen responding:\n", f.title, f.subject, message)
		for _, pt := range f.points {
			b.WriteString("- " + pt + "\n")
		}
		b.WriteString("\n" + f.closing)
	} else {
		fmt.Fprintf(&b, "The student says: %s\n\nRespond in a supportive, empathetic manner while providing helpful guidance.", message)
	}

	fmt.Fprintf(&b, `

IMPORTANT SAFETY GUIDELINES:
- If the student mentions self-harm, abuse, or thoughts of harming others, ALWAYS include information about speaking to a school counselor or appropriate crisis resources in your response.
- Do not make definitive medical or mental health diagnoses.
- Never encourage unauthorized absence from school or defiance of reasonable parental/teacher authority.
- If you detect concerning patterns indicating a possible crisis, suggest speaking with a trusted adult or provide crisis hotline information.

Crisis Resources to mention when appropriate:
- Suicide & Crisis Lifeline: call or text %s
- Crisis Text Line: Text HOME to %s
- School counseling office
- Trusted teachers or adult family members
`, constants.CrisisLifeline, constants.CrisisTextLine)

	return b.String()
}

func writeProfile(b *strings.Builder, p state.Profile) {
	if p.IsEmpty() {
		return
	}
	line := func(prefix string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(b, "\n- %s: %s", prefix, strings.Join(items, ", "))
		}
	}
	line("Strengths include", p.Strengths)
	if p.LearningStyle != "" {
		fmt.Fprintf(b, "\n- Preferred learning style: %s", p.LearningStyle)
	}
	line("Study strategies that suit them", p.Strategies)
	line("Interests include", p.Passions)
	line("Future goals include", p.Goals)
	line("Has mentioned facing challenges with", p.Challenges)
	line("Finds these resources useful", p.Resources)
}

// writeHistory replays earlier exchanges, oldest first.
func writeHistory(b *strings.Builder, recent []state.Exchange) {
	if len(recent) == 0 {
		return
	}
	b.WriteString("\n\nRecent conversation with this student:")
	for _, ex := range recent {
		fmt.Fprintf(b, "\nStudent: %s\nYou: %s", ex.UserMessage, ex.Reply)
	}
}

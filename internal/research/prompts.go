package research

import (
	"fmt"
	"strings"
)

const plannerSystemPrompt = `You are a Research Planner Agent. Your job is to analyze research queries and create structured plans.

Given a user's research query, create a comprehensive plan that breaks down the research into manageable subtasks.

You MUST respond with a valid JSON object matching this exact schema:
{
    "query_understanding": "Your understanding of what the user wants to learn",
    "complexity": "simple" | "moderate" | "complex",
    "subtasks": [
        {
            "id": 1,
            "description": "What to research",
            "tools_needed": ["tavily", "arxiv", "wikipedia", "calculator", "goexec"],
            "priority": "high" | "medium" | "low"
        }
    ],
    "expected_sections": ["Section 1", "Section 2", ...],
    "estimated_sources": 5
}

Available tools:
- tavily: Web search for current information
- arxiv: Scientific papers and academic research
- wikipedia: Background knowledge and definitions
- calculator: Mathematical calculations
- goexec: Code examples and demonstrations

Guidelines:
1. Break complex topics into 3-5 subtasks
2. For each subtask, specify which tools would be most helpful
3. Prioritize subtasks (high priority = core concepts, low = nice-to-have)
4. Suggest 4-6 sections for the final report
5. Estimate sources needed (typically 5-10 for good coverage)

Respond ONLY with the JSON object, no additional text.`

func buildPlannerUserPrompt(query string) string {
	return "Research Query: " + strings.TrimSpace(query)
}

const executorSynthesisSystemPrompt = `Summarize the research findings into 2-3 detailed paragraphs.
Be specific and informative. Include facts, definitions, and key insights.
Respond with ONLY a JSON object:
{"findings": "Your detailed summary here...", "key_points": ["point1", "point2"]}`

func buildExecutorUserPrompt(task, data string) string {
	return fmt.Sprintf("Task: %s\n\nResearch Data:\n%s", task, data)
}

const verifierSystemPrompt = `You are a Research Verifier Agent. Your job is to review research findings for completeness and accuracy.

Given the original query, research plan, and collected findings, evaluate the research quality.

You MUST respond with a valid JSON object:
{
    "is_complete": true | false,
    "is_accurate": true | false,
    "missing_aspects": ["Aspect 1 that's missing", ...],
    "suggestions": ["Suggestion for improvement", ...],
    "confidence_score": 0.0 to 1.0,
    "approved": true | false,
    "reasoning": "Why you made this decision"
}

Evaluation criteria:
1. COMPLETENESS: Does the research cover all aspects of the query?
2. ACCURACY: Are the findings factually sound and well-sourced?
3. DEPTH: Is there sufficient detail for a comprehensive report?
4. CITATIONS: Are there enough sources to support claims?

Set approved=true if the research is good enough to proceed to report writing.
Set approved=false if more research is needed (will trigger another round).

Be reasonably lenient - if core aspects are covered, approve it.`

func buildVerifierUserPrompt(query, planJSON, findingsText string, sourceCount int) string {
	return fmt.Sprintf(
		"Original Query: %s\n\nResearch Plan:\n%s\n\nCollected Findings:\n%s\n\nNumber of Sources: %d\n\nEvaluate this research:",
		query, planJSON, findingsText, sourceCount,
	)
}

const synthesizerSystemPrompt = `You are a research report writer. Create a comprehensive report.

Output ONLY valid JSON in this exact format:
{
  "title": "Clear Title About the Topic",
  "executive_summary": "2-3 paragraph comprehensive summary of the research findings...",
  "sections": [
    {"heading": "1. Introduction", "content": "Introduction paragraph..."},
    {"heading": "2. Core Concepts", "content": "Explanation of main concepts..."},
    {"heading": "3. How It Works", "content": "Technical details..."},
    {"heading": "4. Applications", "content": "Real-world use cases..."},
    {"heading": "5. Conclusion", "content": "Summary and key takeaways..."}
  ]
}

IMPORTANT:
- Create 5-6 sections with descriptive headings
- Each section should have 2-3 paragraphs of content
- Include inline citations like [1], [2] where appropriate
- Make content detailed and educational`

func buildSynthesizerUserPrompt(query, findings, sources string) string {
	return fmt.Sprintf(
		"Topic: %s\n\nResearch Findings:\n%s\n\nAvailable Sources:\n%s\n\nGenerate the research report JSON:",
		query, findings, sources,
	)
}

const synthesizerSimpleSystemPrompt = `Create a JSON report with title, executive_summary, and sections array. Each section has heading and content.`

func buildSynthesizerSimpleUserPrompt(query, findings string) string {
	return fmt.Sprintf("Write a report about: %s\n\nData: %s\n\nJSON:", query, findings)
}

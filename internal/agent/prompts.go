package agent

// Prompts for the retrieval workflow. The service answers in Bahasa
// Indonesia regardless of the question language; instructions to the model
// stay in English, which the models follow more reliably.

// decidePrompt routes an incoming question: search the case index, or
// answer directly (greetings, questions about the assistant itself).
const decidePrompt = `You are an assistant for Indonesian Supreme Court decision documents.
Decide how to handle the user's message.

If answering requires information from court decision documents, choose the
action "retrieve" and provide the search query to run against the document
index. Otherwise (greetings, small talk, questions about the assistant)
choose the action "answer" and provide the final answer in Bahasa Indonesia.`

// gradePrompt is the relevance grader for retrieved documents.
const gradePrompt = `You are a grader assessing relevance of a retrieved document to a user question.
Here is the retrieved document:

%s

Here is the user question: %s

If the document contains keyword(s) or semantic meaning related to the user
question, grade it as relevant.
Give a binary score 'yes' or 'no' to indicate whether the document is
relevant to the question.`

// rewritePrompt reformulates a question that retrieved irrelevant documents.
const rewritePrompt = `Look at the input and try to reason about the underlying semantic intent / meaning.

Here is the initial question:
-------
%s
-------

Formulate an improved question:`

// generatePrompt produces the final grounded answer.
const generatePrompt = `You are an assistant for court decision document question-answering tasks.
Use the following pieces of retrieved context to answer the question.

# Question

%s

# Contexts

%s

# Rules

- If you don't know the answer, just say that you don't know. DON'T make up the answer
- Keep the answer as concise as possible
- Always answer in Bahasa Indonesia
- If formatting is necessary, always use Markdown with Commonmark style formatting in
    the response
- ALWAYS return the related reference ` + "`Nomor Dokumen Putusan`" + ` if the generated answer
    utilize information from the contexts

# Answer
`
